// Package schema maps Go struct types onto search index field definitions.
package schema

import (
	"reflect"
	"strings"
	"time"
)

// SearchFieldDataType is the EDM type name of a search field.
type SearchFieldDataType string

const (
	TypeString          SearchFieldDataType = "Edm.String"
	TypeInt32           SearchFieldDataType = "Edm.Int32"
	TypeInt64           SearchFieldDataType = "Edm.Int64"
	TypeDouble          SearchFieldDataType = "Edm.Double"
	TypeBoolean         SearchFieldDataType = "Edm.Boolean"
	TypeDateTimeOffset  SearchFieldDataType = "Edm.DateTimeOffset"
	TypeGeographyPoint  SearchFieldDataType = "Edm.GeographyPoint"
	TypeComplex         SearchFieldDataType = "Edm.ComplexType"
	collectionPrefix                        = "Collection("
	collectionSuffix                        = ")"
)

// Collection wraps an element type into its collection type.
func Collection(elem SearchFieldDataType) SearchFieldDataType {
	return SearchFieldDataType(collectionPrefix + string(elem) + collectionSuffix)
}

// IsCollection reports whether t is a Collection(...) type.
func (t SearchFieldDataType) IsCollection() bool {
	s := string(t)
	return strings.HasPrefix(s, collectionPrefix) && strings.HasSuffix(s, collectionSuffix)
}

// ElementType returns the element type of a collection, or t itself.
func (t SearchFieldDataType) ElementType() SearchFieldDataType {
	if !t.IsCollection() {
		return t
	}
	s := string(t)
	return SearchFieldDataType(s[len(collectionPrefix) : len(s)-len(collectionSuffix)])
}

// IsComplex reports whether t is Edm.ComplexType or a collection of it.
func (t SearchFieldDataType) IsComplex() bool {
	return t.ElementType() == TypeComplex
}

// IsTextual reports whether t is Edm.String or Collection(Edm.String).
func (t SearchFieldDataType) IsTextual() bool {
	return t.ElementType() == TypeString
}

// IsNumeric reports whether the element type is an integer or double.
func (t SearchFieldDataType) IsNumeric() bool {
	switch t.ElementType() {
	case TypeInt32, TypeInt64, TypeDouble:
		return true
	}
	return false
}

// Valid reports whether t is a known scalar, complex or collection type.
func (t SearchFieldDataType) Valid() bool {
	elem := t.ElementType()
	if elem.IsCollection() {
		return false
	}
	switch elem {
	case TypeString, TypeInt32, TypeInt64, TypeDouble, TypeBoolean,
		TypeDateTimeOffset, TypeGeographyPoint, TypeComplex:
		return true
	}
	return false
}

// typeShape is the outcome of classifying a Go type.
type typeShape struct {
	dataType SearchFieldDataType
	// elem is the struct type behind a complex or collection-of-complex field.
	elem reflect.Type
}

func (s typeShape) complex() bool { return s.elem != nil }

var (
	timeType     = reflect.TypeOf(time.Time{})
	geoPointType = reflect.TypeOf(GeoPoint{})

	namedTypes = map[reflect.Type]SearchFieldDataType{
		timeType:     TypeDateTimeOffset,
		geoPointType: TypeGeographyPoint,
	}

	kindTypes = map[reflect.Kind]SearchFieldDataType{
		reflect.String:  TypeString,
		reflect.Bool:    TypeBoolean,
		reflect.Int32:   TypeInt32,
		reflect.Int:     TypeInt64,
		reflect.Int64:   TypeInt64,
		reflect.Float64: TypeDouble,
	}

	unsupportedKinds = map[reflect.Kind]struct{}{
		reflect.Float32:       {},
		reflect.Int8:          {},
		reflect.Int16:         {},
		reflect.Uint8:         {},
		reflect.Uint16:        {},
		reflect.Uint:          {},
		reflect.Uint32:        {},
		reflect.Uint64:        {},
		reflect.Uintptr:       {},
		reflect.Complex64:     {},
		reflect.Complex128:    {},
		reflect.Chan:          {},
		reflect.Func:          {},
		reflect.Interface:     {},
		reflect.UnsafePointer: {},
	}
)

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// classify maps a Go type onto its schema type. The returned reason is
// empty on success.
func classify(t reflect.Type) (typeShape, string) {
	t = indirect(t)
	switch t.Kind() {
	case reflect.Map:
		return typeShape{}, "map types are not supported"
	case reflect.Slice, reflect.Array:
		elem := indirect(t.Elem())
		if k := elem.Kind(); k == reflect.Slice || k == reflect.Array {
			return typeShape{}, "nested collections are not supported"
		}
		if elem.Kind() == reflect.Map {
			return typeShape{}, "collections of maps are not supported"
		}
		inner, reason := classifyElement(elem)
		if reason != "" {
			return typeShape{}, reason
		}
		inner.dataType = Collection(inner.dataType)
		return inner, ""
	}
	return classifyElement(t)
}

func classifyElement(t reflect.Type) (typeShape, string) {
	if dt, ok := namedTypes[t]; ok {
		return typeShape{dataType: dt}, ""
	}
	if _, ok := unsupportedKinds[t.Kind()]; ok {
		return typeShape{}, "type " + t.String() + " is not supported"
	}
	if dt, ok := kindTypes[t.Kind()]; ok {
		return typeShape{dataType: dt}, ""
	}
	if t.Kind() == reflect.Struct {
		return typeShape{dataType: TypeComplex, elem: t}, ""
	}
	return typeShape{}, "type " + t.String() + " is not supported"
}
