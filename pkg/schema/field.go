package schema

import "encoding/json"

// SearchField describes one field of a search index.
type SearchField struct {
	Name           string
	Type           SearchFieldDataType
	Key            bool
	Searchable     bool
	Filterable     bool
	Sortable       bool
	Facetable      bool
	Hidden         bool
	Stored         bool
	Analyzer       string
	SearchAnalyzer string
	IndexAnalyzer  string
	SynonymMaps    []string
	Fields         []SearchField
}

// searchFieldJSON is the REST shape: hidden travels as retrievable.
type searchFieldJSON struct {
	Name           string              `json:"name"`
	Type           SearchFieldDataType `json:"type"`
	Key            bool                `json:"key,omitempty"`
	Searchable     *bool               `json:"searchable,omitempty"`
	Filterable     *bool               `json:"filterable,omitempty"`
	Sortable       *bool               `json:"sortable,omitempty"`
	Facetable      *bool               `json:"facetable,omitempty"`
	Retrievable    *bool               `json:"retrievable,omitempty"`
	Stored         *bool               `json:"stored,omitempty"`
	Analyzer       string              `json:"analyzer,omitempty"`
	SearchAnalyzer string              `json:"searchAnalyzer,omitempty"`
	IndexAnalyzer  string              `json:"indexAnalyzer,omitempty"`
	SynonymMaps    []string            `json:"synonymMaps,omitempty"`
	Fields         *[]SearchField      `json:"fields,omitempty"`
}

func boolPtr(b bool) *bool { return &b }

func (f SearchField) MarshalJSON() ([]byte, error) {
	out := searchFieldJSON{
		Name:           f.Name,
		Type:           f.Type,
		Key:            f.Key,
		Analyzer:       f.Analyzer,
		SearchAnalyzer: f.SearchAnalyzer,
		IndexAnalyzer:  f.IndexAnalyzer,
		SynonymMaps:    f.SynonymMaps,
	}
	if f.Type.IsComplex() {
		nested := f.Fields
		if nested == nil {
			nested = []SearchField{}
		}
		out.Fields = &nested
	} else {
		out.Searchable = boolPtr(f.Searchable)
		out.Filterable = boolPtr(f.Filterable)
		out.Sortable = boolPtr(f.Sortable)
		out.Facetable = boolPtr(f.Facetable)
		out.Retrievable = boolPtr(!f.Hidden)
		out.Stored = boolPtr(f.Stored)
	}
	return json.Marshal(out)
}

func (f *SearchField) UnmarshalJSON(data []byte) error {
	var in searchFieldJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*f = SearchField{
		Name:           in.Name,
		Type:           in.Type,
		Key:            in.Key,
		Searchable:     in.Searchable != nil && *in.Searchable,
		Filterable:     in.Filterable != nil && *in.Filterable,
		Sortable:       in.Sortable != nil && *in.Sortable,
		Facetable:      in.Facetable != nil && *in.Facetable,
		Hidden:         in.Retrievable != nil && !*in.Retrievable,
		Stored:         in.Stored == nil || *in.Stored,
		Analyzer:       in.Analyzer,
		SearchAnalyzer: in.SearchAnalyzer,
		IndexAnalyzer:  in.IndexAnalyzer,
		SynonymMaps:    in.SynonymMaps,
	}
	if in.Fields != nil {
		f.Fields = *in.Fields
	}
	return nil
}

// Retrievable reports whether the field is returned in documents.
func (f SearchField) Retrievable() bool {
	return !f.Hidden && f.Stored
}

// Equal compares two fields, sub-fields included.
func (f SearchField) Equal(o SearchField) bool {
	if f.Name != o.Name || f.Type != o.Type || f.Key != o.Key ||
		f.Searchable != o.Searchable || f.Filterable != o.Filterable ||
		f.Sortable != o.Sortable || f.Facetable != o.Facetable ||
		f.Hidden != o.Hidden || f.Stored != o.Stored ||
		f.Analyzer != o.Analyzer || f.SearchAnalyzer != o.SearchAnalyzer ||
		f.IndexAnalyzer != o.IndexAnalyzer ||
		len(f.SynonymMaps) != len(o.SynonymMaps) || len(f.Fields) != len(o.Fields) {
		return false
	}
	for i := range f.SynonymMaps {
		if f.SynonymMaps[i] != o.SynonymMaps[i] {
			return false
		}
	}
	for i := range f.Fields {
		if !f.Fields[i].Equal(o.Fields[i]) {
			return false
		}
	}
	return true
}

func newSimpleField(name string, dt SearchFieldDataType, o fieldOptions) SearchField {
	return SearchField{
		Name:           name,
		Type:           dt,
		Key:            o.key,
		Searchable:     o.searchable,
		Filterable:     o.filterable,
		Sortable:       o.sortable,
		Facetable:      o.facetable,
		Hidden:         o.hidden,
		Stored:         !o.unstored,
		Analyzer:       o.analyzer,
		SearchAnalyzer: o.searchAnalyzer,
		IndexAnalyzer:  o.indexAnalyzer,
		SynonymMaps:    o.synonymMaps,
	}
}

func newComplexField(name string, dt SearchFieldDataType, nested []SearchField) SearchField {
	if nested == nil {
		nested = []SearchField{}
	}
	return SearchField{Name: name, Type: dt, Stored: true, Fields: nested}
}
