package search

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrIndexNotFound       = errors.New("index not found")
	ErrIndexExists         = errors.New("index already exists")
	ErrIndexConflict       = errors.New("existing index fields cannot be changed")
	ErrPreconditionFailed  = errors.New("etag does not match")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrInvalidRequest      = errors.New("invalid search request")
	ErrInvalidDocument     = errors.New("invalid document")
	ErrSynonymMapNotFound  = errors.New("synonym map not found")
	ErrSynonymMapInUse     = errors.New("synonym map is referenced by an index")
	ErrUnknownSynonymMap   = errors.New("index references an unknown synonym map")
	ErrManagerClosed       = errors.New("index manager is closed")
	ErrSuggesterNotDefined = errors.New("suggester not defined")
)

// Config controls where indexes live and how requests are bounded.
type Config struct {
	// IndexPath is the parent directory of all indexes; empty keeps them in memory.
	IndexPath    string
	BatchSize    int
	QueryTimeout time.Duration
	DefaultTop   int
	MaxTop       int
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.DefaultTop <= 0 {
		c.DefaultTop = 50
	}
	if c.MaxTop <= 0 {
		c.MaxTop = 1000
	}
	return c
}

// Document is a JSON object stored in an index.
type Document map[string]any

type IndexActionType string

const (
	ActionUpload        IndexActionType = "upload"
	ActionMerge         IndexActionType = "merge"
	ActionMergeOrUpload IndexActionType = "mergeOrUpload"
	ActionDelete        IndexActionType = "delete"
)

const actionKey = "@search.action"

// IndexAction is one entry of an indexing batch. On the wire the action
// travels inside the document as "@search.action".
type IndexAction struct {
	Action   IndexActionType
	Document Document
}

func (a IndexAction) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Document)+1)
	for k, v := range a.Document {
		out[k] = v
	}
	action := a.Action
	if action == "" {
		action = ActionUpload
	}
	out[actionKey] = action
	return json.Marshal(out)
}

func (a *IndexAction) UnmarshalJSON(data []byte) error {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	a.Action = ActionUpload
	if raw, ok := doc[actionKey]; ok {
		s, _ := raw.(string)
		a.Action = IndexActionType(s)
		delete(doc, actionKey)
	}
	a.Document = doc
	return nil
}

// IndexBatch is the request body of a document indexing call.
type IndexBatch struct {
	Actions []IndexAction `json:"value"`
}

// IndexingResult reports the outcome of one action.
type IndexingResult struct {
	Key          string `json:"key"`
	Succeeded    bool   `json:"status"`
	StatusCode   int    `json:"statusCode"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

type FilterOp string

const (
	OpEq FilterOp = "eq"
	OpNe FilterOp = "ne"
	OpGt FilterOp = "gt"
	OpGe FilterOp = "ge"
	OpLt FilterOp = "lt"
	OpLe FilterOp = "le"
)

// Filter restricts results on a filterable field.
type Filter struct {
	Field string   `json:"field"`
	Op    FilterOp `json:"op"`
	Value any      `json:"value"`
}

type SearchRequest struct {
	Search            string   `json:"search"`
	SearchFields      []string `json:"searchFields,omitempty"`
	Filters           []Filter `json:"filters,omitempty"`
	OrderBy           []string `json:"orderby,omitempty"`
	Facets            []string `json:"facets,omitempty"`
	Select            []string `json:"select,omitempty"`
	Top               int      `json:"top,omitempty"`
	Skip              int      `json:"skip,omitempty"`
	IncludeTotalCount bool     `json:"count,omitempty"`
}

type SearchHit struct {
	Score    float64  `json:"@search.score"`
	Document Document `json:"document"`
}

type FacetResult struct {
	Value any `json:"value"`
	Count int `json:"count"`
}

type SearchResult struct {
	Count   *uint64                  `json:"@odata.count,omitempty"`
	Facets  map[string][]FacetResult `json:"@search.facets,omitempty"`
	Results []SearchHit              `json:"value"`
}

type AutocompleteRequest struct {
	Search    string `json:"search"`
	Suggester string `json:"suggesterName"`
	Top       int    `json:"top,omitempty"`
}

type Suggestion struct {
	Text  string `json:"text"`
	Count uint64 `json:"count"`
}

// IndexStatistics summarises one index.
type IndexStatistics struct {
	DocumentCount uint64 `json:"documentCount"`
}
