package indexclient

import (
	"context"
	"net/http"
	"net/url"
	"reflect"

	"github.com/code-100-precent/LingSearch/pkg/schema"
	"github.com/code-100-precent/LingSearch/pkg/search"
)

func indexPath(name string) string {
	return "/indexes/" + url.PathEscape(name)
}

func synonymMapPath(name string) string {
	return "/synonymmaps/" + url.PathEscape(name)
}

// CreateOrUpdateIndex sends idx. ifMatch may be empty, "*" or an etag.
// The returned bool is true when the index was created.
func (c *Client) CreateOrUpdateIndex(ctx context.Context, idx schema.SearchIndex, ifMatch string) (schema.SearchIndex, bool, error) {
	r, err := c.send(ctx, call{method: http.MethodPut, path: indexPath(idx.Name), body: idx, ifMatch: ifMatch})
	if err != nil {
		return schema.SearchIndex{}, false, err
	}
	saved, err := decode[schema.SearchIndex](r)
	return saved, r.status == http.StatusCreated, err
}

// CreateIndexForType builds the fields of sample's type and creates the
// index from them as they are. Built fields are cached per type.
func (c *Client) CreateIndexForType(ctx context.Context, name string, sample any) (schema.SearchIndex, error) {
	t, ok := sample.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(sample)
	}
	fields, err := c.registry.FieldsOf(t)
	if err != nil {
		return schema.SearchIndex{}, err
	}
	saved, _, err := c.CreateOrUpdateIndex(ctx, schema.NewSearchIndex(name, fields...), "")
	return saved, err
}

func (c *Client) GetIndex(ctx context.Context, name string) (schema.SearchIndex, error) {
	r, err := c.send(ctx, call{method: http.MethodGet, path: indexPath(name)})
	if err != nil {
		return schema.SearchIndex{}, err
	}
	return decode[schema.SearchIndex](r)
}

func (c *Client) ListIndexes(ctx context.Context) ([]schema.SearchIndex, error) {
	r, err := c.send(ctx, call{method: http.MethodGet, path: "/indexes"})
	if err != nil {
		return nil, err
	}
	return decode[[]schema.SearchIndex](r)
}

func (c *Client) DeleteIndex(ctx context.Context, name, ifMatch string) error {
	_, err := c.send(ctx, call{method: http.MethodDelete, path: indexPath(name), ifMatch: ifMatch})
	return err
}

func (c *Client) GetIndexStatistics(ctx context.Context, name string) (search.IndexStatistics, error) {
	r, err := c.send(ctx, call{method: http.MethodGet, path: indexPath(name) + "/stats"})
	if err != nil {
		return search.IndexStatistics{}, err
	}
	return decode[search.IndexStatistics](r)
}

func (c *Client) CreateOrUpdateSynonymMap(ctx context.Context, sm schema.SynonymMap, ifMatch string) (schema.SynonymMap, bool, error) {
	r, err := c.send(ctx, call{method: http.MethodPut, path: synonymMapPath(sm.Name), body: sm, ifMatch: ifMatch})
	if err != nil {
		return schema.SynonymMap{}, false, err
	}
	saved, err := decode[schema.SynonymMap](r)
	return saved, r.status == http.StatusCreated, err
}

func (c *Client) GetSynonymMap(ctx context.Context, name string) (schema.SynonymMap, error) {
	r, err := c.send(ctx, call{method: http.MethodGet, path: synonymMapPath(name)})
	if err != nil {
		return schema.SynonymMap{}, err
	}
	return decode[schema.SynonymMap](r)
}

func (c *Client) ListSynonymMaps(ctx context.Context) ([]schema.SynonymMap, error) {
	r, err := c.send(ctx, call{method: http.MethodGet, path: "/synonymmaps"})
	if err != nil {
		return nil, err
	}
	return decode[[]schema.SynonymMap](r)
}

func (c *Client) DeleteSynonymMap(ctx context.Context, name, ifMatch string) error {
	_, err := c.send(ctx, call{method: http.MethodDelete, path: synonymMapPath(name), ifMatch: ifMatch})
	return err
}
