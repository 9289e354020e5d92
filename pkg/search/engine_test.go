package search

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/code-100-precent/LingSearch/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAddress struct {
	City    string `json:"city" search:"searchable,filterable"`
	Country string `json:"country" search:"filterable,facetable"`
}

type testHotel struct {
	ID          string          `json:"hotelId" search:"key,filterable"`
	Name        string          `json:"name" search:"searchable,sortable"`
	Description string          `json:"description" search:"searchable,synonymMaps=hotel-synonyms"`
	Category    string          `json:"category" search:"searchable,filterable,facetable"`
	Tags        []string        `json:"tags" search:"searchable,filterable,facetable"`
	Rating      float64         `json:"rating" search:"filterable,sortable"`
	Rooms       int64           `json:"rooms" search:"filterable"`
	Parking     bool            `json:"parking" search:"filterable"`
	Opened      time.Time       `json:"opened" search:"filterable,sortable"`
	Location    schema.GeoPoint `json:"location" search:"filterable"`
	Address     testAddress     `json:"address"`
	Secret      string          `json:"secret" search:"hidden"`
	Notes       string          `json:"notes" search:"unstored"`
}

var testHotels = []testHotel{
	{
		ID: "1", Name: "Grand Palace", Description: "Luxury hotel with a spa and pool",
		Category: "Luxury", Tags: []string{"pool", "spa"}, Rating: 4.8, Rooms: 120, Parking: true,
		Opened: time.Date(2001, 5, 1, 0, 0, 0, 0, time.UTC), Location: schema.NewGeoPoint(47.6, -122.3),
		Address: testAddress{City: "Seattle", Country: "USA"}, Secret: "s1", Notes: "n1",
	},
	{
		ID: "2", Name: "Budget Inn", Description: "Cheap rooms close to the airport",
		Category: "Budget", Tags: []string{"wifi"}, Rating: 3.1, Rooms: 40, Parking: false,
		Opened: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), Location: schema.NewGeoPoint(40.7, -74.0),
		Address: testAddress{City: "New York", Country: "USA"},
	},
	{
		ID: "3", Name: "Grand Hostel", Description: "Shared rooms in the old town",
		Category: "Budget", Tags: []string{"wifi", "bar"}, Rating: 3.9, Rooms: 25, Parking: true,
		Opened: time.Date(2010, 3, 1, 0, 0, 0, 0, time.UTC), Location: schema.NewGeoPoint(52.5, 13.4),
		Address: testAddress{City: "Berlin", Country: "Germany"},
	},
}

func hotelIndex(t *testing.T) schema.SearchIndex {
	t.Helper()
	idx, err := schema.NewSearchIndexFor("hotels", testHotel{})
	require.NoError(t, err)
	idx.Suggesters = []schema.Suggester{schema.NewSuggester("sg", "name", "category")}
	require.NoError(t, idx.Validate())
	return idx
}

func toDocument(t *testing.T, v any) Document {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var doc Document
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc
}

func hotelSynonyms(name string) (schema.SynonymMap, bool) {
	if name != "hotel-synonyms" {
		return schema.SynonymMap{}, false
	}
	return schema.NewSynonymMap(name, "spa, wellness", "cheap => budget"), true
}

func setupTestEngine(t *testing.T) Engine {
	t.Helper()
	engine, err := New(Config{QueryTimeout: 5 * time.Second}, hotelIndex(t), "", hotelSynonyms)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })

	actions := make([]IndexAction, 0, len(testHotels))
	for _, h := range testHotels {
		actions = append(actions, IndexAction{Action: ActionUpload, Document: toDocument(t, h)})
	}
	results, err := engine.Index(context.Background(), actions)
	if err != nil {
		t.Fatalf("Failed to index documents: %v", err)
	}
	for _, r := range results {
		if !r.Succeeded {
			t.Fatalf("Indexing %q failed: %s", r.Key, r.ErrorMessage)
		}
	}
	return engine
}

func hitKeys(res SearchResult) []string {
	keys := make([]string, 0, len(res.Results))
	for _, hit := range res.Results {
		keys = append(keys, hit.Document["hotelId"].(string))
	}
	return keys
}

func TestEngine_CountAndGet(t *testing.T) {
	engine := setupTestEngine(t)
	ctx := context.Background()

	n, err := engine.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	doc, err := engine.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Grand Palace", doc["name"])
	assert.NotContains(t, doc, "secret")
	assert.NotContains(t, doc, "notes")
	assert.Equal(t, "Seattle", doc["address"].(map[string]any)["city"])

	doc, err = engine.Get(ctx, "1", "name", "rating")
	require.NoError(t, err)
	assert.Len(t, doc, 2)

	_, err = engine.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = engine.Get(ctx, "1", "secret")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestEngine_IndexActions(t *testing.T) {
	engine := setupTestEngine(t)
	ctx := context.Background()

	results, err := engine.Index(ctx, []IndexAction{
		{Action: ActionMerge, Document: Document{"hotelId": "2", "rating": 3.5}},
		{Action: ActionMerge, Document: Document{"hotelId": "9", "rating": 1}},
		{Action: ActionMergeOrUpload, Document: Document{"hotelId": "9", "name": "New Place"}},
		{Action: ActionDelete, Document: Document{"hotelId": "3"}},
		{Action: ActionUpload, Document: Document{"hotelId": "10", "unknown": true}},
		{Action: ActionUpload, Document: Document{"name": "no key"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 6)

	assert.True(t, results[0].Succeeded)
	assert.False(t, results[1].Succeeded)
	assert.Equal(t, http.StatusNotFound, results[1].StatusCode)
	assert.True(t, results[2].Succeeded)
	assert.Equal(t, http.StatusCreated, results[2].StatusCode)
	assert.True(t, results[3].Succeeded)
	assert.Equal(t, http.StatusBadRequest, results[4].StatusCode)
	assert.Equal(t, http.StatusBadRequest, results[5].StatusCode)

	doc, err := engine.Get(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, 3.5, doc["rating"])
	assert.Equal(t, "Budget Inn", doc["name"])

	_, err = engine.Get(ctx, "3")
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	n, err := engine.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
}

func TestEngine_SmallBatches(t *testing.T) {
	engine, err := New(Config{BatchSize: 1}, hotelIndex(t), "", nil)
	require.NoError(t, err)
	defer engine.Close()

	results, err := engine.Index(context.Background(), []IndexAction{
		{Action: ActionUpload, Document: Document{"hotelId": "a", "name": "first"}},
		{Action: ActionMerge, Document: Document{"hotelId": "a", "rating": 2}},
		{Action: ActionUpload, Document: Document{"hotelId": "b", "name": "second"}},
	})
	require.NoError(t, err)
	for _, r := range results {
		assert.True(t, r.Succeeded, r.ErrorMessage)
	}
	doc, err := engine.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "first", doc["name"])
	assert.Equal(t, float64(2), doc["rating"])
}

func TestEngine_SearchText(t *testing.T) {
	engine := setupTestEngine(t)
	ctx := context.Background()

	res, err := engine.Search(ctx, SearchRequest{Search: "grand", IncludeTotalCount: true})
	require.NoError(t, err)
	require.NotNil(t, res.Count)
	assert.Equal(t, uint64(2), *res.Count)
	assert.ElementsMatch(t, []string{"1", "3"}, hitKeys(res))

	res, err = engine.Search(ctx, SearchRequest{Search: "*"})
	require.NoError(t, err)
	assert.Len(t, res.Results, 3)

	res, err = engine.Search(ctx, SearchRequest{Search: "berlin"})
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, hitKeys(res))

	_, err = engine.Search(ctx, SearchRequest{Search: "grand", SearchFields: []string{"rating"}})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestEngine_SearchSynonyms(t *testing.T) {
	engine := setupTestEngine(t)

	res, err := engine.Search(context.Background(), SearchRequest{Search: "wellness", SearchFields: []string{"description"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, hitKeys(res))
}

func TestEngine_SearchFilters(t *testing.T) {
	engine := setupTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		filters []Filter
		want    []string
	}{
		{"string eq", []Filter{{Field: "category", Op: OpEq, Value: "Budget"}}, []string{"2", "3"}},
		{"string ne", []Filter{{Field: "category", Op: OpNe, Value: "Budget"}}, []string{"1"}},
		{"collection eq", []Filter{{Field: "tags", Op: OpEq, Value: "wifi"}}, []string{"2", "3"}},
		{"number ge", []Filter{{Field: "rating", Op: OpGe, Value: 3.9}}, []string{"1", "3"}},
		{"number lt", []Filter{{Field: "rooms", Op: OpLt, Value: "40"}}, []string{"3"}},
		{"bool eq", []Filter{{Field: "parking", Op: OpEq, Value: true}}, []string{"1", "3"}},
		{"date gt", []Filter{{Field: "opened", Op: OpGt, Value: "2005-01-01T00:00:00Z"}}, []string{"2", "3"}},
		{"nested eq", []Filter{{Field: "address/country", Op: OpEq, Value: "Germany"}}, []string{"3"}},
		{"combined", []Filter{
			{Field: "category", Op: OpEq, Value: "Budget"},
			{Field: "parking", Op: OpEq, Value: true},
		}, []string{"3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := engine.Search(ctx, SearchRequest{Filters: tt.filters})
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, hitKeys(res))
		})
	}
}

func TestEngine_SearchRejectsUndeclaredCapabilities(t *testing.T) {
	engine := setupTestEngine(t)
	ctx := context.Background()

	requests := map[string]SearchRequest{
		"filter not filterable": {Filters: []Filter{{Field: "name", Op: OpEq, Value: "x"}}},
		"unknown operator":      {Filters: []Filter{{Field: "rating", Op: "like", Value: 1}}},
		"geo filter":            {Filters: []Filter{{Field: "location", Op: OpEq, Value: "x"}}},
		"order not sortable":    {OrderBy: []string{"category"}},
		"order bad direction":   {OrderBy: []string{"rating sideways"}},
		"facet not facetable":   {Facets: []string{"name"}},
		"hidden select":         {Select: []string{"secret"}},
		"negative skip":         {Skip: -1},
	}
	for name, req := range requests {
		t.Run(name, func(t *testing.T) {
			_, err := engine.Search(ctx, req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestEngine_SearchOrderTopSkip(t *testing.T) {
	engine := setupTestEngine(t)
	ctx := context.Background()

	res, err := engine.Search(ctx, SearchRequest{OrderBy: []string{"rating desc"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3", "2"}, hitKeys(res))

	res, err = engine.Search(ctx, SearchRequest{OrderBy: []string{"name asc"}, Top: 1, Skip: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, hitKeys(res))

	res, err = engine.Search(ctx, SearchRequest{OrderBy: []string{"opened"}, Select: []string{"hotelId"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3", "2"}, hitKeys(res))
	assert.Len(t, res.Results[0].Document, 1)
}

func TestEngine_SearchFacets(t *testing.T) {
	engine := setupTestEngine(t)

	res, err := engine.Search(context.Background(), SearchRequest{Facets: []string{"category", "tags"}})
	require.NoError(t, err)
	require.Contains(t, res.Facets, "category")
	assert.Contains(t, res.Facets["category"], FacetResult{Value: "Budget", Count: 2})
	assert.Contains(t, res.Facets["category"], FacetResult{Value: "Luxury", Count: 1})
	assert.Contains(t, res.Facets["tags"], FacetResult{Value: "wifi", Count: 2})
}

func TestEngine_Autocomplete(t *testing.T) {
	engine := setupTestEngine(t)
	ctx := context.Background()

	got, err := engine.Autocomplete(ctx, AutocompleteRequest{Suggester: "sg", Search: "Gr"})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, Suggestion{Text: "grand", Count: 2}, got[0])

	got, err = engine.Autocomplete(ctx, AutocompleteRequest{Suggester: "sg", Search: "b", Top: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = engine.Autocomplete(ctx, AutocompleteRequest{Suggester: "nope", Search: "g"})
	assert.ErrorIs(t, err, ErrSuggesterNotDefined)

	_, err = engine.Autocomplete(ctx, AutocompleteRequest{Suggester: "sg"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestEngine_ReopenFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hotels")
	idx := hotelIndex(t)

	engine, err := New(Config{}, idx, path, nil)
	require.NoError(t, err)
	_, err = engine.Index(context.Background(), []IndexAction{{Document: toDocument(t, testHotels[0])}})
	require.NoError(t, err)
	require.NoError(t, engine.Close())

	engine, err = New(Config{}, idx, path, nil)
	require.NoError(t, err)
	defer engine.Close()

	doc, err := engine.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Grand Palace", doc["name"])
}

func TestEngine_CanceledContext(t *testing.T) {
	engine := setupTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Index(ctx, []IndexAction{{Document: Document{"hotelId": "x"}}})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = engine.Count(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
