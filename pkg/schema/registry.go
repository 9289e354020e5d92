package schema

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultRegistrySize bounds the number of cached types.
const DefaultRegistrySize = 512

// Registry builds the fields of registered types once and serves them
// from an LRU cache afterwards.
type Registry struct {
	builder *FieldBuilder
	cache   *lru.Cache[reflect.Type, []SearchField]

	mu    sync.RWMutex
	names map[string]reflect.Type
}

// NewRegistry creates a registry. A nil builder uses NewFieldBuilder().
func NewRegistry(builder *FieldBuilder, size int) *Registry {
	if builder == nil {
		builder = NewFieldBuilder()
	}
	if size <= 0 {
		size = DefaultRegistrySize
	}
	c, err := lru.New[reflect.Type, []SearchField](size)
	if err != nil {
		c, _ = lru.New[reflect.Type, []SearchField](DefaultRegistrySize)
	}
	return &Registry{builder: builder, cache: c, names: make(map[string]reflect.Type)}
}

// Register builds sample's type and stores it under name.
func (r *Registry) Register(name string, sample any) ([]SearchField, error) {
	t, ok := sample.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(sample)
	}
	if t == nil {
		return nil, configErr("<nil>", "", "a struct type is required")
	}
	fields, err := r.FieldsOf(t)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.names[name] = indirect(t)
	r.mu.Unlock()
	return fields, nil
}

// Fields returns the fields of the type registered under name.
func (r *Registry) Fields(name string) ([]SearchField, error) {
	r.mu.RLock()
	t, ok := r.names[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("schema: no type registered as %q", name)
	}
	return r.FieldsOf(t)
}

// FieldsOf returns the fields of t, building them on a cache miss.
func (r *Registry) FieldsOf(t reflect.Type) ([]SearchField, error) {
	if t == nil {
		return nil, configErr("<nil>", "", "a struct type is required")
	}
	t = indirect(t)
	if fields, ok := r.cache.Get(t); ok {
		return cloneFields(fields), nil
	}
	fields, err := r.builder.Build(t)
	if err != nil {
		return nil, err
	}
	r.cache.Add(t, fields)
	return cloneFields(fields), nil
}

// Len reports how many types are cached.
func (r *Registry) Len() int { return r.cache.Len() }

// Names lists the registered names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.names))
	for n := range r.names {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func cloneFields(fields []SearchField) []SearchField {
	if fields == nil {
		return nil
	}
	out := make([]SearchField, len(fields))
	for i, f := range fields {
		f.SynonymMaps = append([]string(nil), f.SynonymMaps...)
		if f.Fields != nil {
			f.Fields = cloneFields(f.Fields)
		}
		out[i] = f
	}
	return out
}
