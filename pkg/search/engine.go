package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/code-100-precent/LingSearch/pkg/schema"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Engine serves the documents of one index.
type Engine interface {
	Definition() schema.SearchIndex
	Index(ctx context.Context, actions []IndexAction) ([]IndexingResult, error)
	Get(ctx context.Context, key string, selectFields ...string) (Document, error)
	Search(ctx context.Context, req SearchRequest) (SearchResult, error)
	Autocomplete(ctx context.Context, req AutocompleteRequest) ([]Suggestion, error)
	Count(ctx context.Context) (uint64, error)
	Close() error
}

const sourcePrefix = "src:"

type bleveEngine struct {
	def      schema.SearchIndex
	key      schema.SearchField
	idx      bleve.Index
	cfg      Config
	synonyms SynonymLookup
	logger   *zap.Logger
}

// New opens the bleve index at path, creating it when missing. An empty
// path keeps the index in memory. synonyms may be nil.
func New(cfg Config, def schema.SearchIndex, path string, synonyms SynonymLookup) (Engine, error) {
	key, ok := def.KeyField()
	if !ok {
		return nil, fmt.Errorf("%w: index %q has no key field", schema.ErrInvalidIndex, def.Name)
	}
	m, err := BuildIndexMapping(def)
	if err != nil {
		return nil, err
	}
	idx, err := openIndex(path, m)
	if err != nil {
		return nil, fmt.Errorf("open index %q: %w", def.Name, err)
	}
	return &bleveEngine{
		def:      def,
		key:      key,
		idx:      idx,
		cfg:      cfg.withDefaults(),
		synonyms: synonyms,
		logger:   zap.L().With(zap.String("index", def.Name)),
	}, nil
}

func openIndex(path string, m mapping.IndexMapping) (bleve.Index, error) {
	if path == "" {
		return bleve.NewMemOnly(m)
	}
	if _, err := os.Stat(path); err == nil {
		return bleve.Open(path)
	}
	return bleve.New(path, m)
}

func (e *bleveEngine) Definition() schema.SearchIndex { return e.def }

func (e *bleveEngine) Close() error { return e.idx.Close() }

// redefine returns an engine over the same bleve index with a new
// definition. The fields must be unchanged.
func (e *bleveEngine) redefine(def schema.SearchIndex) *bleveEngine {
	next := *e
	next.def = def
	return &next
}

func (e *bleveEngine) Count(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return e.idx.DocCount()
}

// Index applies actions in order, flushing a bleve batch every BatchSize
// actions. Per-document failures are reported in the results.
func (e *bleveEngine) Index(ctx context.Context, actions []IndexAction) ([]IndexingResult, error) {
	results := make([]IndexingResult, 0, len(actions))
	pending := map[string]Document{}
	batch := e.idx.NewBatch()

	flush := func() error {
		if batch.Size() == 0 {
			return nil
		}
		if err := e.idx.Batch(batch); err != nil {
			return err
		}
		batch.Reset()
		return nil
	}

	for i, action := range actions {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := e.apply(batch, pending, action)
		results = append(results, res)
		if (i+1)%e.cfg.BatchSize == 0 {
			if err := flush(); err != nil {
				return results, err
			}
			pending = map[string]Document{}
		}
	}
	if err := flush(); err != nil {
		return results, err
	}
	return results, nil
}

func (e *bleveEngine) apply(batch *bleve.Batch, pending map[string]Document, action IndexAction) IndexingResult {
	doc, err := normalize(action.Document)
	if err != nil {
		return failed("", http.StatusBadRequest, err)
	}
	key, err := e.documentKey(doc)
	if err != nil {
		return failed("", http.StatusBadRequest, err)
	}

	switch action.Action {
	case ActionDelete:
		batch.Delete(key)
		batch.DeleteInternal([]byte(sourcePrefix + key))
		pending[key] = nil
		return IndexingResult{Key: key, Succeeded: true, StatusCode: http.StatusOK}
	case ActionMerge, ActionMergeOrUpload:
		existing, found, err := e.source(key, pending)
		if err != nil {
			return failed(key, http.StatusInternalServerError, err)
		}
		if found {
			for k, v := range doc {
				existing[k] = v
			}
			doc = existing
		} else if action.Action == ActionMerge {
			return failed(key, http.StatusNotFound, ErrDocumentNotFound)
		}
	case ActionUpload, "":
	default:
		return failed(key, http.StatusBadRequest, fmt.Errorf("%w: unknown action %q", ErrInvalidDocument, action.Action))
	}

	if err := e.validateDocument(doc); err != nil {
		return failed(key, http.StatusBadRequest, err)
	}
	src, err := json.Marshal(doc)
	if err != nil {
		return failed(key, http.StatusBadRequest, err)
	}
	if err := batch.Index(key, bleveDocument(doc, e.def.Fields)); err != nil {
		return failed(key, http.StatusBadRequest, err)
	}
	batch.SetInternal([]byte(sourcePrefix+key), src)
	pending[key] = doc
	return IndexingResult{Key: key, Succeeded: true, StatusCode: http.StatusCreated}
}

func failed(key string, status int, err error) IndexingResult {
	return IndexingResult{Key: key, StatusCode: status, ErrorMessage: err.Error()}
}

func (e *bleveEngine) documentKey(doc Document) (string, error) {
	raw, ok := doc[e.key.Name]
	if !ok || raw == nil {
		return "", fmt.Errorf("%w: key field %q is missing", ErrInvalidDocument, e.key.Name)
	}
	key, err := cast.ToStringE(raw)
	if err != nil || key == "" {
		return "", fmt.Errorf("%w: key field %q must be a non-empty string", ErrInvalidDocument, e.key.Name)
	}
	return key, nil
}

func (e *bleveEngine) validateDocument(doc Document) error {
	for k := range doc {
		if _, ok := e.def.Field(k); !ok || strings.ContainsAny(k, "./") {
			return fmt.Errorf("%w: field %q is not defined in index %q", ErrInvalidDocument, k, e.def.Name)
		}
	}
	return nil
}

// source returns a copy of the stored document, looking at not yet
// flushed actions first.
func (e *bleveEngine) source(key string, pending map[string]Document) (Document, bool, error) {
	if doc, ok := pending[key]; ok {
		if doc == nil {
			return nil, false, nil
		}
		out := make(Document, len(doc))
		for k, v := range doc {
			out[k] = v
		}
		return out, true, nil
	}
	raw, err := e.idx.GetInternal([]byte(sourcePrefix + key))
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (e *bleveEngine) Get(ctx context.Context, key string, selectFields ...string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.checkSelect(selectFields); err != nil {
		return nil, err
	}
	doc, found, err := e.source(key, nil)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrDocumentNotFound
	}
	return e.project(doc, selectFields), nil
}

func (e *bleveEngine) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	if e.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.QueryTimeout)
		defer cancel()
	}
	sreq, facetFields, err := e.buildRequest(req)
	if err != nil {
		return SearchResult{}, err
	}
	res, err := e.idx.SearchInContext(ctx, sreq)
	if err != nil {
		return SearchResult{}, err
	}

	out := SearchResult{Results: make([]SearchHit, 0, len(res.Hits))}
	if req.IncludeTotalCount {
		total := res.Total
		out.Count = &total
	}
	for _, hit := range res.Hits {
		doc, found, err := e.source(hit.ID, nil)
		if err != nil {
			return SearchResult{}, err
		}
		if !found {
			e.logger.Warn("search hit without source document", zap.String("key", hit.ID))
			continue
		}
		out.Results = append(out.Results, SearchHit{Score: hit.Score, Document: e.project(doc, req.Select)})
	}
	if len(facetFields) > 0 {
		out.Facets = make(map[string][]FacetResult, len(facetFields))
		for name, f := range facetFields {
			out.Facets[name] = facetValues(res.Facets[name], f)
		}
	}
	return out, nil
}

func (e *bleveEngine) Autocomplete(ctx context.Context, req AutocompleteRequest) ([]Suggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var sg *schema.Suggester
	for i := range e.def.Suggesters {
		if e.def.Suggesters[i].Name == req.Suggester {
			sg = &e.def.Suggesters[i]
			break
		}
	}
	if sg == nil {
		return nil, fmt.Errorf("%w: %q", ErrSuggesterNotDefined, req.Suggester)
	}
	prefix := strings.ToLower(strings.TrimSpace(req.Search))
	if prefix == "" {
		return nil, fmt.Errorf("%w: autocomplete needs a search prefix", ErrInvalidRequest)
	}
	top := req.Top
	if top <= 0 {
		top = 5
	}

	counts := map[string]uint64{}
	for _, field := range sg.SourceFields {
		dict, err := e.idx.FieldDictPrefix(field, []byte(prefix))
		if err != nil {
			return nil, err
		}
		for {
			entry, err := dict.Next()
			if err != nil {
				_ = dict.Close()
				return nil, err
			}
			if entry == nil {
				break
			}
			counts[entry.Term] += entry.Count
		}
		if err := dict.Close(); err != nil {
			return nil, err
		}
	}

	out := make([]Suggestion, 0, len(counts))
	for term, n := range counts {
		out = append(out, Suggestion{Text: term, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Text < out[j].Text
	})
	if len(out) > top {
		out = out[:top]
	}
	return out, nil
}

// project drops hidden and unstored fields and applies select.
func (e *bleveEngine) project(doc Document, selectFields []string) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		f, ok := e.def.Field(k)
		if !ok || !returned(f) {
			continue
		}
		if f.Type.IsComplex() {
			v = stripHidden(v, f.Fields)
		}
		out[k] = v
	}
	if len(selectFields) == 0 {
		return out
	}
	selected := make(Document, len(selectFields))
	for _, name := range selectFields {
		if v, ok := out[name]; ok {
			selected[name] = v
		}
	}
	return selected
}

func returned(f schema.SearchField) bool {
	return f.Retrievable() && f.Stored
}

func stripHidden(v any, fields []schema.SearchField) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			for _, f := range fields {
				if f.Name != k || !returned(f) {
					continue
				}
				if f.Type.IsComplex() {
					inner = stripHidden(inner, f.Fields)
				}
				out[k] = inner
			}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = stripHidden(item, fields)
		}
		return out
	}
	return v
}

func (e *bleveEngine) checkSelect(selectFields []string) error {
	for _, name := range selectFields {
		f, ok := e.def.Field(name)
		if !ok || strings.ContainsAny(name, "./") {
			return fmt.Errorf("%w: select field %q is not a top-level field", ErrInvalidRequest, name)
		}
		if !f.Retrievable() {
			return fmt.Errorf("%w: field %q is not retrievable", ErrInvalidRequest, name)
		}
	}
	return nil
}

// normalize round-trips a document through JSON so Go values (structs,
// GeoPoint, time.Time) look the same as decoded request bodies.
func normalize(doc Document) (Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return out, nil
}

// bleveDocument rewrites GeoJSON points into the [lon, lat] form bleve
// understands. Everything else is passed through.
func bleveDocument(doc map[string]any, fields []schema.SearchField) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
		for _, f := range fields {
			if f.Name != k {
				continue
			}
			switch {
			case f.Type.ElementType() == schema.TypeGeographyPoint:
				out[k] = geoValue(v)
			case f.Type.IsComplex():
				out[k] = complexValue(v, f.Fields)
			}
		}
	}
	return out
}

func complexValue(v any, fields []schema.SearchField) any {
	switch val := v.(type) {
	case map[string]any:
		return bleveDocument(val, fields)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = complexValue(item, fields)
		}
		return out
	}
	return v
}

func geoValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if coords, ok := val["coordinates"]; ok {
			return coords
		}
		return val
	case []any:
		// a collection of points, or already a [lon, lat] pair
		if len(val) > 0 {
			if _, isMap := val[0].(map[string]any); isMap {
				out := make([]any, len(val))
				for i, item := range val {
					out[i] = geoValue(item)
				}
				return out
			}
		}
	}
	return v
}
