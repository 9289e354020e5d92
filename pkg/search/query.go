package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	bsearch "github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/code-100-precent/LingSearch/pkg/schema"
	"github.com/spf13/cast"
)

const defaultFacetSize = 10

// buildRequest translates a SearchRequest into a bleve request and returns
// the facet fields it asked for, keyed by facet name.
func (e *bleveEngine) buildRequest(req SearchRequest) (*bleve.SearchRequest, map[string]schema.SearchField, error) {
	if req.Skip < 0 || req.Top < 0 {
		return nil, nil, fmt.Errorf("%w: top and skip must not be negative", ErrInvalidRequest)
	}
	top := req.Top
	if top == 0 {
		top = e.cfg.DefaultTop
	}
	if top > e.cfg.MaxTop {
		top = e.cfg.MaxTop
	}
	if err := e.checkSelect(req.Select); err != nil {
		return nil, nil, err
	}

	q, err := e.textQuery(req.Search, req.SearchFields)
	if err != nil {
		return nil, nil, err
	}
	if len(req.Filters) > 0 {
		conj := bleve.NewConjunctionQuery(q)
		for _, f := range req.Filters {
			fq, err := e.filterQuery(f)
			if err != nil {
				return nil, nil, err
			}
			conj.AddQuery(fq)
		}
		q = conj
	}

	sreq := bleve.NewSearchRequestOptions(q, top, req.Skip, false)
	if len(req.OrderBy) > 0 {
		order, err := e.sortOrder(req.OrderBy)
		if err != nil {
			return nil, nil, err
		}
		sreq.SortBy(order)
	}

	facets := map[string]schema.SearchField{}
	for _, name := range req.Facets {
		f, ok := e.def.Field(name)
		if !ok || !f.Facetable {
			return nil, nil, fmt.Errorf("%w: field %q is not facetable", ErrInvalidRequest, name)
		}
		switch f.Type.ElementType() {
		case schema.TypeString, schema.TypeBoolean:
		default:
			return nil, nil, fmt.Errorf("%w: facets are supported on string and boolean fields, %q is %s", ErrInvalidRequest, name, f.Type)
		}
		sreq.AddFacet(name, bleve.NewFacetRequest(exactPath(fieldPath(name), f), defaultFacetSize))
		facets[name] = f
	}
	return sreq, facets, nil
}

func (e *bleveEngine) textQuery(text string, searchFields []string) (query.Query, error) {
	text = strings.TrimSpace(text)
	paths := searchablePaths("", e.def.Fields)
	if len(searchFields) > 0 {
		paths = paths[:0:0]
		for _, name := range searchFields {
			f, ok := e.def.Field(name)
			if !ok || !f.Searchable {
				return nil, fmt.Errorf("%w: field %q is not searchable", ErrInvalidRequest, name)
			}
			paths = append(paths, fieldPath(name))
		}
	}
	if text == "" || text == "*" || len(paths) == 0 {
		return bleve.NewMatchAllQuery(), nil
	}

	disj := bleve.NewDisjunctionQuery()
	for _, path := range paths {
		f, _ := e.def.Field(path)
		mq := bleve.NewMatchQuery(expandSynonyms(text, e.synonymMaps(f.SynonymMaps)))
		mq.SetField(path)
		mq.Analyzer = bleveAnalyzer(firstNonEmpty(f.SearchAnalyzer, f.Analyzer))
		disj.AddQuery(mq)
	}
	return disj, nil
}

func (e *bleveEngine) synonymMaps(names []string) []schema.SynonymMap {
	if e.synonyms == nil {
		return nil
	}
	var out []schema.SynonymMap
	for _, name := range names {
		if m, ok := e.synonyms(name); ok {
			out = append(out, m)
		}
	}
	return out
}

func (e *bleveEngine) filterQuery(f Filter) (query.Query, error) {
	field, ok := e.def.Field(f.Field)
	if !ok || !field.Filterable {
		return nil, fmt.Errorf("%w: field %q is not filterable", ErrInvalidRequest, f.Field)
	}
	path := exactPath(fieldPath(f.Field), field)

	var q query.Query
	var err error
	switch f.Op {
	case OpEq, OpNe:
		q, err = equalQuery(path, field, f.Value)
	case OpGt, OpGe, OpLt, OpLe:
		q, err = rangeQuery(path, field, f.Op, f.Value)
	default:
		return nil, fmt.Errorf("%w: unknown filter operator %q", ErrInvalidRequest, f.Op)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: filter on %q: %v", ErrInvalidRequest, f.Field, err)
	}
	if f.Op == OpNe {
		bq := bleve.NewBooleanQuery()
		bq.AddMust(bleve.NewMatchAllQuery())
		bq.AddMustNot(q)
		return bq, nil
	}
	return q, nil
}

func equalQuery(path string, f schema.SearchField, value any) (query.Query, error) {
	inclusive := true
	switch f.Type.ElementType() {
	case schema.TypeString:
		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, err
		}
		tq := bleve.NewTermQuery(s)
		tq.SetField(path)
		return tq, nil
	case schema.TypeBoolean:
		b, err := cast.ToBoolE(value)
		if err != nil {
			return nil, err
		}
		bq := bleve.NewBoolFieldQuery(b)
		bq.SetField(path)
		return bq, nil
	case schema.TypeInt32, schema.TypeInt64, schema.TypeDouble:
		n, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, err
		}
		nq := bleve.NewNumericRangeInclusiveQuery(&n, &n, &inclusive, &inclusive)
		nq.SetField(path)
		return nq, nil
	case schema.TypeDateTimeOffset:
		t, err := cast.ToTimeE(value)
		if err != nil {
			return nil, err
		}
		dq := bleve.NewDateRangeInclusiveQuery(t, t, &inclusive, &inclusive)
		dq.SetField(path)
		return dq, nil
	}
	return nil, fmt.Errorf("%s fields cannot be filtered", f.Type)
}

func rangeQuery(path string, f schema.SearchField, op FilterOp, value any) (query.Query, error) {
	inclusive := op == OpGe || op == OpLe
	lower := op == OpGt || op == OpGe
	switch f.Type.ElementType() {
	case schema.TypeString:
		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, err
		}
		var tq *query.TermRangeQuery
		if lower {
			tq = bleve.NewTermRangeInclusiveQuery(s, "", &inclusive, nil)
		} else {
			tq = bleve.NewTermRangeInclusiveQuery("", s, nil, &inclusive)
		}
		tq.SetField(path)
		return tq, nil
	case schema.TypeInt32, schema.TypeInt64, schema.TypeDouble:
		n, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, err
		}
		var nq *query.NumericRangeQuery
		if lower {
			nq = bleve.NewNumericRangeInclusiveQuery(&n, nil, &inclusive, nil)
		} else {
			nq = bleve.NewNumericRangeInclusiveQuery(nil, &n, nil, &inclusive)
		}
		nq.SetField(path)
		return nq, nil
	case schema.TypeDateTimeOffset:
		t, err := cast.ToTimeE(value)
		if err != nil {
			return nil, err
		}
		var dq *query.DateRangeQuery
		if lower {
			dq = bleve.NewDateRangeInclusiveQuery(t, time.Time{}, &inclusive, nil)
		} else {
			dq = bleve.NewDateRangeInclusiveQuery(time.Time{}, t, nil, &inclusive)
		}
		dq.SetField(path)
		return dq, nil
	}
	return nil, fmt.Errorf("%s fields have no order", f.Type)
}

// sortOrder accepts "field", "field asc", "field desc" and
// "search.score() desc".
func (e *bleveEngine) sortOrder(orderBy []string) ([]string, error) {
	out := make([]string, 0, len(orderBy))
	for _, clause := range orderBy {
		parts := strings.Fields(clause)
		if len(parts) == 0 || len(parts) > 2 {
			return nil, fmt.Errorf("%w: bad order-by clause %q", ErrInvalidRequest, clause)
		}
		desc := false
		if len(parts) == 2 {
			switch strings.ToLower(parts[1]) {
			case "asc":
			case "desc":
				desc = true
			default:
				return nil, fmt.Errorf("%w: bad order-by direction %q", ErrInvalidRequest, parts[1])
			}
		}

		var path string
		if parts[0] == "search.score()" {
			path = "_score"
		} else {
			f, ok := e.def.Field(parts[0])
			if !ok || !f.Sortable || f.Type.IsCollection() {
				return nil, fmt.Errorf("%w: field %q is not sortable", ErrInvalidRequest, parts[0])
			}
			path = exactPath(fieldPath(parts[0]), f)
		}
		if desc {
			path = "-" + path
		}
		out = append(out, path)
	}
	return out, nil
}

func facetValues(fr *bsearch.FacetResult, f schema.SearchField) []FacetResult {
	out := []FacetResult{}
	if fr == nil || fr.Terms == nil {
		return out
	}
	for _, term := range fr.Terms.Terms() {
		var v any = term.Term
		if f.Type.ElementType() == schema.TypeBoolean {
			v = term.Term == "T"
		}
		out = append(out, FacetResult{Value: v, Count: term.Count})
	}
	return out
}
