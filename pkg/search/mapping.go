package search

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/code-100-precent/LingSearch/pkg/schema"
)

// exactSuffix names the keyword twin of a searchable string field that is
// also filterable, sortable or facetable.
const exactSuffix = "#exact"

// 服务端分析器名称 -> bleve 分析器
var analyzerNames = map[string]string{
	"standard.lucene": standard.Name,
	"standard":        standard.Name,
	"keyword":         keyword.Name,
	"simple":          simple.Name,
	"en.lucene":       en.AnalyzerName,
	"en.microsoft":    en.AnalyzerName,
	"en":              en.AnalyzerName,
}

func bleveAnalyzer(name string) string {
	if name == "" {
		return ""
	}
	if a, ok := analyzerNames[strings.ToLower(name)]; ok {
		return a
	}
	return name
}

// BuildIndexMapping converts an index definition into a static bleve mapping.
func BuildIndexMapping(idx schema.SearchIndex) (*mapping.IndexMappingImpl, error) {
	im := mapping.NewIndexMapping()
	if im == nil {
		panic("failed to create index mapping")
	}
	im.DefaultAnalyzer = standard.Name
	im.StoreDynamic = false
	im.IndexDynamic = false
	im.DocValuesDynamic = false

	def := mapping.NewDocumentStaticMapping()
	addFieldMappings(def, idx.Fields)
	im.DefaultMapping = def

	if err := im.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrInvalidIndex, err)
	}
	return im, nil
}

func addFieldMappings(dm *mapping.DocumentMapping, fields []schema.SearchField) {
	for _, f := range fields {
		if f.Type.IsComplex() {
			sub := mapping.NewDocumentStaticMapping()
			addFieldMappings(sub, f.Fields)
			dm.AddSubDocumentMapping(f.Name, sub)
			continue
		}
		dm.AddFieldMappingsAt(f.Name, fieldMappings(f)...)
	}
}

func fieldMappings(f schema.SearchField) []*mapping.FieldMapping {
	store := f.Stored && !f.Hidden
	exact := f.Filterable || f.Sortable || f.Facetable
	docValues := f.Sortable || f.Facetable

	var fm *mapping.FieldMapping
	switch f.Type.ElementType() {
	case schema.TypeString:
		if f.Searchable {
			// 文本
			text := mapping.NewTextFieldMapping()
			text.Store = store
			text.Index = true
			text.Analyzer = bleveAnalyzer(firstNonEmpty(f.IndexAnalyzer, f.Analyzer))
			text.IncludeInAll = true
			text.IncludeTermVectors = true
			text.DocValues = false
			if !exact {
				return []*mapping.FieldMapping{text}
			}
			twin := keywordMapping(false, true, docValues)
			twin.Name = f.Name + exactSuffix
			return []*mapping.FieldMapping{text, twin}
		}
		// 关键词
		return []*mapping.FieldMapping{keywordMapping(store, exact || f.Key, docValues)}
	case schema.TypeInt32, schema.TypeInt64, schema.TypeDouble:
		fm = mapping.NewNumericFieldMapping()
	case schema.TypeBoolean:
		fm = mapping.NewBooleanFieldMapping()
	case schema.TypeDateTimeOffset:
		fm = mapping.NewDateTimeFieldMapping()
	case schema.TypeGeographyPoint:
		fm = mapping.NewGeoPointFieldMapping()
	default:
		fm = mapping.NewTextFieldMapping()
	}
	fm.Store = store
	fm.Index = exact
	fm.DocValues = docValues
	fm.IncludeInAll = false
	return []*mapping.FieldMapping{fm}
}

func keywordMapping(store, index, docValues bool) *mapping.FieldMapping {
	kw := mapping.NewTextFieldMapping()
	kw.Analyzer = keyword.Name
	kw.Store = store
	kw.Index = index
	kw.DocValues = docValues
	kw.IncludeInAll = false
	return kw
}

// exactPath is the bleve field used to filter, sort and facet on f.
func exactPath(path string, f schema.SearchField) string {
	if f.Type.IsTextual() && f.Searchable {
		return path + exactSuffix
	}
	return path
}

// fieldPath turns "a/b" into bleve's "a.b".
func fieldPath(path string) string {
	return strings.ReplaceAll(path, "/", ".")
}

// searchablePaths lists the bleve paths of every searchable leaf field.
func searchablePaths(prefix string, fields []schema.SearchField) []string {
	var out []string
	for _, f := range fields {
		path := prefix + f.Name
		if f.Type.IsComplex() {
			out = append(out, searchablePaths(path+".", f.Fields)...)
			continue
		}
		if f.Searchable {
			out = append(out, path)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
