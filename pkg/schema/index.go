package schema

import (
	"regexp"
	"strings"
)

const (
	maxNameLength = 128

	// SuggesterModeInfix is the only supported suggester search mode.
	SuggesterModeInfix = "analyzingInfixMatching"
)

var (
	indexNamePattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`)
	fieldNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
)

// Suggester names the fields that autocomplete draws terms from.
type Suggester struct {
	Name         string   `json:"name"`
	SearchMode   string   `json:"searchMode"`
	SourceFields []string `json:"sourceFields"`
}

// NewSuggester creates an infix suggester over the given fields.
func NewSuggester(name string, sourceFields ...string) Suggester {
	return Suggester{Name: name, SearchMode: SuggesterModeInfix, SourceFields: sourceFields}
}

// SearchIndex is an index definition: its name and field schema.
type SearchIndex struct {
	Name       string        `json:"name"`
	Fields     []SearchField `json:"fields"`
	Suggesters []Suggester   `json:"suggesters,omitempty"`
	ETag       string        `json:"@odata.etag,omitempty"`
}

// NewSearchIndex creates an index definition from fields.
func NewSearchIndex(name string, fields ...SearchField) SearchIndex {
	return SearchIndex{Name: name, Fields: fields}
}

// NewSearchIndexFor creates an index definition from sample's type.
func NewSearchIndexFor(name string, sample any) (SearchIndex, error) {
	fields, err := BuildFields(sample)
	if err != nil {
		return SearchIndex{}, err
	}
	return NewSearchIndex(name, fields...), nil
}

// KeyField returns the top-level key field.
func (idx SearchIndex) KeyField() (SearchField, bool) {
	for _, f := range idx.Fields {
		if f.Key {
			return f, true
		}
	}
	return SearchField{}, false
}

// Field resolves a field by path. Both "a/b" and "a.b" separate levels.
func (idx SearchIndex) Field(path string) (SearchField, bool) {
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '.' })
	if len(parts) == 0 {
		return SearchField{}, false
	}
	fields := idx.Fields
	var found SearchField
	for _, part := range parts {
		ok := false
		for _, f := range fields {
			if f.Name == part {
				found, ok = f, true
				break
			}
		}
		if !ok {
			return SearchField{}, false
		}
		fields = found.Fields
	}
	return found, true
}

// SynonymMapNames lists every synonym map referenced by the index.
func (idx SearchIndex) SynonymMapNames() []string {
	seen := map[string]bool{}
	var names []string
	var visit func([]SearchField)
	visit = func(fields []SearchField) {
		for _, f := range fields {
			for _, n := range f.SynonymMaps {
				if !seen[n] {
					seen[n] = true
					names = append(names, n)
				}
			}
			visit(f.Fields)
		}
	}
	visit(idx.Fields)
	return names
}

// Validate checks the definition against the service rules.
func (idx SearchIndex) Validate() error {
	if !validName(idx.Name) {
		return invalidIndex("index name %q must be 1-128 lowercase letters, digits or dashes, start and end with a letter or digit and not contain \"--\"", idx.Name)
	}
	if len(idx.Fields) == 0 {
		return invalidIndex("index %q has no fields", idx.Name)
	}
	if err := validateFields(idx.Fields, "", true); err != nil {
		return err
	}
	keys := 0
	for _, f := range idx.Fields {
		if f.Key {
			keys++
			if f.Type != TypeString {
				return invalidIndex("key field %q must be of type %s", f.Name, TypeString)
			}
		}
	}
	if keys != 1 {
		return invalidIndex("index %q must have exactly one key field, found %d", idx.Name, keys)
	}
	return validateSuggesters(idx)
}

func validName(name string) bool {
	return len(name) <= maxNameLength && indexNamePattern.MatchString(name) && !strings.Contains(name, "--")
}

func validateFields(fields []SearchField, prefix string, top bool) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		path := prefix + f.Name
		if !fieldNamePattern.MatchString(f.Name) || strings.HasPrefix(f.Name, "azureSearch") {
			return invalidIndex("field name %q is invalid", path)
		}
		if seen[f.Name] {
			return invalidIndex("field %q is defined more than once", path)
		}
		seen[f.Name] = true
		if !f.Type.Valid() {
			return invalidIndex("field %q has unknown type %q", path, f.Type)
		}
		if f.Key && !top {
			return invalidIndex("key field %q must be a top-level field", path)
		}
		if f.Type.IsComplex() {
			if f.Key || f.Searchable || f.Filterable || f.Sortable || f.Facetable || f.Hidden || f.Analyzer != "" ||
				f.SearchAnalyzer != "" || f.IndexAnalyzer != "" || len(f.SynonymMaps) > 0 {
				return invalidIndex("complex field %q cannot carry search options", path)
			}
			if len(f.Fields) == 0 {
				return invalidIndex("complex field %q must have at least one sub-field", path)
			}
			if err := validateFields(f.Fields, path+"/", false); err != nil {
				return err
			}
			continue
		}
		if len(f.Fields) > 0 {
			return invalidIndex("field %q of type %s cannot have sub-fields", path, f.Type)
		}
		if f.Searchable && !f.Type.IsTextual() {
			return invalidIndex("searchable field %q must be textual", path)
		}
		if !f.Searchable && (f.Analyzer != "" || f.SearchAnalyzer != "" || f.IndexAnalyzer != "" || len(f.SynonymMaps) > 0) {
			return invalidIndex("analyzers and synonym maps require field %q to be searchable", path)
		}
		if f.Analyzer != "" && (f.SearchAnalyzer != "" || f.IndexAnalyzer != "") {
			return invalidIndex("field %q sets analyzer together with searchAnalyzer or indexAnalyzer", path)
		}
		if (f.SearchAnalyzer == "") != (f.IndexAnalyzer == "") {
			return invalidIndex("field %q must set searchAnalyzer and indexAnalyzer together", path)
		}
		if f.Sortable && f.Type.IsCollection() {
			return invalidIndex("collection field %q cannot be sortable", path)
		}
	}
	return nil
}

func validateSuggesters(idx SearchIndex) error {
	seen := map[string]bool{}
	for _, s := range idx.Suggesters {
		if s.Name == "" || seen[s.Name] {
			return invalidIndex("suggester name %q is empty or duplicated", s.Name)
		}
		seen[s.Name] = true
		if s.SearchMode != "" && s.SearchMode != SuggesterModeInfix {
			return invalidIndex("suggester %q has unsupported search mode %q", s.Name, s.SearchMode)
		}
		if len(s.SourceFields) == 0 {
			return invalidIndex("suggester %q has no source fields", s.Name)
		}
		for _, name := range s.SourceFields {
			f, ok := idx.Field(name)
			if !ok || strings.ContainsAny(name, "/.") || !f.Searchable || !f.Type.IsTextual() {
				return invalidIndex("suggester %q source field %q must be a top-level searchable string field", s.Name, name)
			}
		}
	}
	return nil
}
