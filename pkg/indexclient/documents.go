package indexclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/code-100-precent/LingSearch/pkg/search"
)

// DocumentsClient works on the documents of one index
type DocumentsClient struct {
	client *Client
	index  string
}

func (c *Client) Documents(index string) *DocumentsClient {
	return &DocumentsClient{client: c, index: index}
}

func (d *DocumentsClient) path(suffix string) string {
	return indexPath(d.index) + "/docs" + suffix
}

// Index sends a raw batch. A partially failed batch returns the results
// together with a *BatchError.
func (d *DocumentsClient) Index(ctx context.Context, actions []search.IndexAction) ([]search.IndexingResult, error) {
	r, err := d.client.send(ctx, call{
		method: http.MethodPost,
		path:   d.path("/index"),
		body:   search.IndexBatch{Actions: actions},
	})
	if err != nil {
		return nil, err
	}
	out, err := decode[struct {
		Value []search.IndexingResult `json:"value"`
	}](r)
	if err != nil {
		return nil, err
	}
	if r.status == http.StatusMultiStatus {
		return out.Value, &BatchError{Results: out.Value}
	}
	return out.Value, nil
}

func (d *DocumentsClient) Upload(ctx context.Context, docs ...any) ([]search.IndexingResult, error) {
	return d.batch(ctx, search.ActionUpload, docs)
}

func (d *DocumentsClient) Merge(ctx context.Context, docs ...any) ([]search.IndexingResult, error) {
	return d.batch(ctx, search.ActionMerge, docs)
}

func (d *DocumentsClient) MergeOrUpload(ctx context.Context, docs ...any) ([]search.IndexingResult, error) {
	return d.batch(ctx, search.ActionMergeOrUpload, docs)
}

// Delete removes documents; each doc needs at least its key field
func (d *DocumentsClient) Delete(ctx context.Context, docs ...any) ([]search.IndexingResult, error) {
	return d.batch(ctx, search.ActionDelete, docs)
}

func (d *DocumentsClient) batch(ctx context.Context, action search.IndexActionType, docs []any) ([]search.IndexingResult, error) {
	actions := make([]search.IndexAction, 0, len(docs))
	for _, doc := range docs {
		m, err := toDocument(doc)
		if err != nil {
			return nil, err
		}
		actions = append(actions, search.IndexAction{Action: action, Document: m})
	}
	return d.Index(ctx, actions)
}

// toDocument accepts search.Document, maps and anything that encodes to a
// JSON object
func toDocument(v any) (search.Document, error) {
	switch doc := v.(type) {
	case search.Document:
		return doc, nil
	case map[string]any:
		return doc, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc search.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Get fetches a document by key into out, which may be a *search.Document
// or a pointer to a struct
func (d *DocumentsClient) Get(ctx context.Context, key string, out any, selectFields ...string) error {
	if out == nil || reflect.ValueOf(out).Kind() != reflect.Pointer {
		return &json.InvalidUnmarshalError{Type: reflect.TypeOf(out)}
	}
	q := url.Values{}
	if len(selectFields) > 0 {
		q.Set("select", strings.Join(selectFields, ","))
	}
	r, err := d.client.send(ctx, call{method: http.MethodGet, path: d.path("/" + url.PathEscape(key)), query: q})
	if err != nil {
		return err
	}
	return json.Unmarshal(r.data, out)
}

func (d *DocumentsClient) Search(ctx context.Context, req search.SearchRequest) (search.SearchResult, error) {
	r, err := d.client.send(ctx, call{method: http.MethodPost, path: d.path("/search"), body: req})
	if err != nil {
		return search.SearchResult{}, err
	}
	return decode[search.SearchResult](r)
}

func (d *DocumentsClient) Autocomplete(ctx context.Context, req search.AutocompleteRequest) ([]search.Suggestion, error) {
	r, err := d.client.send(ctx, call{method: http.MethodPost, path: d.path("/autocomplete"), body: req})
	if err != nil {
		return nil, err
	}
	out, err := decode[struct {
		Value []search.Suggestion `json:"value"`
	}](r)
	return out.Value, err
}

// Count returns the number of documents in the index
func (d *DocumentsClient) Count(ctx context.Context) (uint64, error) {
	stats, err := d.client.GetIndexStatistics(ctx, d.index)
	return stats.DocumentCount, err
}
