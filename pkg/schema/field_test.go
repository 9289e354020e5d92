package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchField_MarshalLeaf(t *testing.T) {
	f := SearchField{Name: "secret", Type: TypeString, Filterable: true, Hidden: true, Stored: true}
	data, err := json.Marshal(f)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "secret", got["name"])
	assert.Equal(t, "Edm.String", got["type"])
	assert.Equal(t, false, got["retrievable"])
	assert.Equal(t, true, got["filterable"])
	assert.Equal(t, false, got["searchable"])
	assert.NotContains(t, got, "fields")
	assert.NotContains(t, got, "analyzer")
	assert.NotContains(t, got, "key")
}

func TestSearchField_MarshalComplexAlwaysHasFields(t *testing.T) {
	data, err := json.Marshal(newComplexField("child", TypeComplex, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"child","type":"Edm.ComplexType","fields":[]}`, string(data))
}

func TestSearchField_UnmarshalDefaults(t *testing.T) {
	var f SearchField
	require.NoError(t, json.Unmarshal([]byte(`{"name":"title","type":"Edm.String","searchable":true}`), &f))
	assert.True(t, f.Searchable)
	assert.True(t, f.Stored)
	assert.False(t, f.Hidden)
	assert.True(t, f.Retrievable())

	require.NoError(t, json.Unmarshal([]byte(`{"name":"t","type":"Edm.String","retrievable":false,"stored":false}`), &f))
	assert.True(t, f.Hidden)
	assert.False(t, f.Stored)
}

func TestSearchField_Equal(t *testing.T) {
	fields, err := FieldsFor[FullHotel]()
	require.NoError(t, err)
	again, err := FieldsFor[FullHotel]()
	require.NoError(t, err)
	for i := range fields {
		assert.True(t, fields[i].Equal(again[i]), fields[i].Name)
	}
	changed := fields[1]
	changed.Sortable = !changed.Sortable
	assert.False(t, fields[1].Equal(changed))
}

func TestDataType_Helpers(t *testing.T) {
	c := Collection(TypeComplex)
	assert.Equal(t, SearchFieldDataType("Collection(Edm.ComplexType)"), c)
	assert.True(t, c.IsCollection())
	assert.True(t, c.IsComplex())
	assert.Equal(t, TypeComplex, c.ElementType())
	assert.True(t, Collection(TypeString).IsTextual())
	assert.True(t, TypeDouble.IsNumeric())
	assert.False(t, TypeBoolean.IsNumeric())
	assert.True(t, c.Valid())
	assert.False(t, Collection(Collection(TypeString)).Valid())
	assert.False(t, SearchFieldDataType("Edm.Single").Valid())
}
