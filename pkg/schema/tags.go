package schema

import (
	"reflect"
	"strings"
)

const (
	tagName = "search"

	markerSimple     = "simple"
	markerSearchable = "searchable"
)

// fieldOptions is what the search tag of one field resolves to.
type fieldOptions struct {
	simple     bool
	searchable bool

	key        bool
	filterable bool
	sortable   bool
	facetable  bool
	hidden     bool
	unstored   bool

	analyzer       string
	searchAnalyzer string
	indexAnalyzer  string
	synonymMaps    []string
}

func (o fieldOptions) marked() bool {
	return o.simple || o.searchable || o.key || o.filterable || o.sortable ||
		o.facetable || o.hidden || o.unstored
}

func (o fieldOptions) hasSearchParams() bool {
	return o.analyzer != "" || o.searchAnalyzer != "" || o.indexAnalyzer != "" || len(o.synonymMaps) > 0
}

// ignored reports whether the field carries the ignore marker.
func ignored(sf reflect.StructField) bool {
	if sf.Tag.Get(tagName) == "-" {
		return true
	}
	return sf.Tag.Get("json") == "-"
}

// fieldName uses the json name when there is one.
func fieldName(sf reflect.StructField) string {
	if tag, ok := sf.Tag.Lookup("json"); ok {
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			return name
		}
	}
	return sf.Name
}

func hasJSONName(sf reflect.StructField) bool {
	tag, ok := sf.Tag.Lookup("json")
	if !ok {
		return false
	}
	name, _, _ := strings.Cut(tag, ",")
	return name != ""
}

// parseTag splits the search tag into options. It only checks the tag
// syntax; placement rules depend on the field type and live in resolve.
func parseTag(tag string) (fieldOptions, string) {
	var o fieldOptions
	if strings.TrimSpace(tag) == "" {
		return o, ""
	}
	for _, raw := range strings.Split(tag, ",") {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}
		if k, v, ok := strings.Cut(token, "="); ok {
			v = strings.TrimSpace(v)
			switch strings.TrimSpace(k) {
			case "analyzer":
				o.analyzer = v
			case "searchAnalyzer":
				o.searchAnalyzer = v
			case "indexAnalyzer":
				o.indexAnalyzer = v
			case "synonymMaps":
				o.synonymMaps = splitNames(v)
			default:
				return o, "unknown search tag option " + k
			}
			continue
		}
		switch token {
		case markerSimple:
			o.simple = true
		case markerSearchable:
			o.searchable = true
		case "key":
			o.key = true
		case "filterable":
			o.filterable = true
		case "sortable":
			o.sortable = true
		case "facetable":
			o.facetable = true
		case "hidden":
			o.hidden = true
		case "unstored":
			o.unstored = true
		default:
			return o, "unknown search tag option " + token
		}
	}
	if o.simple && o.searchable {
		return o, "a field cannot be both simple and searchable"
	}
	if !o.searchable && o.hasSearchParams() {
		return o, "analyzer and synonym map options require the searchable marker"
	}
	return o, ""
}

// resolve applies the placement rules that need the classified type.
func (o fieldOptions) resolve(dt SearchFieldDataType) string {
	if dt.IsComplex() {
		if o.marked() || o.hasSearchParams() {
			return "complex fields cannot carry search options"
		}
		return ""
	}
	if o.searchable && !dt.IsTextual() {
		return "searchable properties must be textual"
	}
	if o.analyzer != "" && (o.searchAnalyzer != "" || o.indexAnalyzer != "") {
		return "analyzer cannot be combined with searchAnalyzer or indexAnalyzer, choose one analyzer or a search and index pair"
	}
	return ""
}

func splitNames(v string) []string {
	var names []string
	for _, n := range strings.Split(v, "|") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}
