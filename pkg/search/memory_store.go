package search

import (
	"context"
	"sync"

	"github.com/code-100-precent/LingSearch/pkg/schema"
)

// MemoryStore keeps definitions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	indexes  map[string]schema.SearchIndex
	synonyms map[string]schema.SynonymMap
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		indexes:  map[string]schema.SearchIndex{},
		synonyms: map[string]schema.SynonymMap{},
	}
}

func (s *MemoryStore) LoadIndexes(ctx context.Context) ([]schema.SearchIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]schema.SearchIndex, 0, len(s.indexes))
	for _, idx := range s.indexes {
		out = append(out, idx)
	}
	return out, nil
}

func (s *MemoryStore) SaveIndex(ctx context.Context, idx schema.SearchIndex) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes[idx.Name] = idx
	return nil
}

func (s *MemoryStore) DeleteIndex(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.indexes, name)
	return nil
}

func (s *MemoryStore) LoadSynonymMaps(ctx context.Context) ([]schema.SynonymMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]schema.SynonymMap, 0, len(s.synonyms))
	for _, sm := range s.synonyms {
		out = append(out, sm)
	}
	return out, nil
}

func (s *MemoryStore) SaveSynonymMap(ctx context.Context, m schema.SynonymMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synonyms[m.Name] = m
	return nil
}

func (s *MemoryStore) DeleteSynonymMap(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.synonyms, name)
	return nil
}
