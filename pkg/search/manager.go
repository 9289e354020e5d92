package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/code-100-precent/LingSearch/pkg/schema"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefinitionStore persists index and synonym map definitions.
type DefinitionStore interface {
	LoadIndexes(ctx context.Context) ([]schema.SearchIndex, error)
	SaveIndex(ctx context.Context, idx schema.SearchIndex) error
	DeleteIndex(ctx context.Context, name string) error
	LoadSynonymMaps(ctx context.Context) ([]schema.SynonymMap, error)
	SaveSynonymMap(ctx context.Context, m schema.SynonymMap) error
	DeleteSynonymMap(ctx context.Context, name string) error
}

// Manager owns the indexes of a service and their synonym maps.
type Manager struct {
	cfg    Config
	store  DefinitionStore
	logger *zap.Logger

	mu       sync.RWMutex
	engines  map[string]*bleveEngine
	synonyms map[string]schema.SynonymMap
	closed   bool
}

func NewManager(cfg Config, store DefinitionStore, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.L()
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{
		cfg:      cfg.withDefaults(),
		store:    store,
		logger:   logger,
		engines:  map[string]*bleveEngine{},
		synonyms: map[string]schema.SynonymMap{},
	}
}

// Open loads persisted definitions and opens their indexes.
func (m *Manager) Open(ctx context.Context) error {
	maps, err := m.store.LoadSynonymMaps(ctx)
	if err != nil {
		return fmt.Errorf("load synonym maps: %w", err)
	}
	indexes, err := m.store.LoadIndexes(ctx)
	if err != nil {
		return fmt.Errorf("load indexes: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sm := range maps {
		m.synonyms[sm.Name] = sm
	}
	for _, idx := range indexes {
		if _, ok := m.engines[idx.Name]; ok {
			continue
		}
		e, err := m.openEngine(idx)
		if err != nil {
			return err
		}
		m.engines[idx.Name] = e
	}
	m.logger.Info("search indexes opened",
		zap.Int("indexes", len(m.engines)),
		zap.Int("synonymMaps", len(m.synonyms)))
	return nil
}

func (m *Manager) indexPath(name string) string {
	if m.cfg.IndexPath == "" {
		return ""
	}
	return filepath.Join(m.cfg.IndexPath, name)
}

func (m *Manager) openEngine(idx schema.SearchIndex) (*bleveEngine, error) {
	e, err := New(m.cfg, idx, m.indexPath(idx.Name), m.lookupSynonymMap)
	if err != nil {
		return nil, err
	}
	return e.(*bleveEngine), nil
}

func (m *Manager) lookupSynonymMap(name string) (schema.SynonymMap, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sm, ok := m.synonyms[name]
	return sm, ok
}

// etagMatches reports whether an If-Match value allows writing over current.
// "" and "*" always match an existing resource.
func etagMatches(ifMatch, current string) bool {
	return ifMatch == "" || ifMatch == "*" || ifMatch == current
}

// CreateOrUpdateIndex stores idx and opens or updates its index. The bool
// result is true when the index was created.
func (m *Manager) CreateOrUpdateIndex(ctx context.Context, idx schema.SearchIndex, ifMatch string) (schema.SearchIndex, bool, error) {
	if err := idx.Validate(); err != nil {
		return schema.SearchIndex{}, false, err
	}
	if _, err := BuildIndexMapping(idx); err != nil {
		return schema.SearchIndex{}, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return schema.SearchIndex{}, false, ErrManagerClosed
	}
	for _, name := range idx.SynonymMapNames() {
		if _, ok := m.synonyms[name]; !ok {
			return schema.SearchIndex{}, false, fmt.Errorf("%w: %q", ErrUnknownSynonymMap, name)
		}
	}

	idx.ETag = uuid.NewString()
	current, exists := m.engines[idx.Name]
	if !exists {
		if ifMatch != "" && ifMatch != "*" {
			return schema.SearchIndex{}, false, ErrPreconditionFailed
		}
		e, err := m.openEngine(idx)
		if err != nil {
			return schema.SearchIndex{}, false, err
		}
		if err := m.store.SaveIndex(ctx, idx); err != nil {
			_ = e.Close()
			return schema.SearchIndex{}, false, err
		}
		m.engines[idx.Name] = e
		m.logger.Info("index created", zap.String("index", idx.Name), zap.Int("fields", len(idx.Fields)))
		return idx, true, nil
	}

	if !etagMatches(ifMatch, current.def.ETag) {
		return schema.SearchIndex{}, false, ErrPreconditionFailed
	}
	next, rebuilt, err := m.updateEngine(ctx, current, idx)
	if err != nil {
		return schema.SearchIndex{}, false, err
	}
	if err := m.store.SaveIndex(ctx, idx); err != nil {
		if rebuilt {
			m.rollbackEngine(current.def, next)
		}
		return schema.SearchIndex{}, false, err
	}
	if rebuilt && m.indexPath(idx.Name) == "" {
		_ = current.Close()
	}
	m.engines[idx.Name] = next
	m.logger.Info("index updated", zap.String("index", idx.Name), zap.Int("fields", len(idx.Fields)))
	return idx, false, nil
}

// updateEngine returns the engine serving idx after an update of current.
// rebuilt is true when a new bleve index replaced the old one. An in-memory
// index is built next to the old one, which stays open until the caller
// commits; an on-disk index shares its directory, so the old one is closed
// first and reopened if the rebuild fails.
func (m *Manager) updateEngine(ctx context.Context, current *bleveEngine, idx schema.SearchIndex) (next *bleveEngine, rebuilt bool, err error) {
	old := current.def.Fields
	if sameFields(old, idx.Fields) {
		return current.redefine(idx), false, nil
	}
	if !additive(old, idx.Fields) {
		return nil, false, fmt.Errorf("%w: index %q", ErrIndexConflict, idx.Name)
	}
	n, err := current.Count(ctx)
	if err != nil {
		return nil, false, err
	}
	if n > 0 {
		return nil, false, fmt.Errorf("%w: index %q holds %d documents", ErrIndexConflict, idx.Name, n)
	}

	path := m.indexPath(idx.Name)
	if path == "" {
		next, err = m.openEngine(idx)
		if err != nil {
			return nil, false, err
		}
		return next, true, nil
	}

	// empty index on disk: rebuild the mapping with the new fields
	if err := current.Close(); err != nil {
		return nil, false, err
	}
	if err := os.RemoveAll(path); err != nil {
		m.reopen(current.def)
		return nil, false, err
	}
	next, err = m.openEngine(idx)
	if err != nil {
		m.reopen(current.def)
		return nil, false, err
	}
	return next, true, nil
}

// rollbackEngine discards a rebuilt engine and puts def back in service.
func (m *Manager) rollbackEngine(def schema.SearchIndex, rebuilt *bleveEngine) {
	_ = rebuilt.Close()
	path := m.indexPath(def.Name)
	if path == "" {
		// 内存索引：旧引擎仍然打开着
		return
	}
	if err := os.RemoveAll(path); err != nil {
		m.logger.Error("remove rebuilt index failed", zap.String("index", def.Name), zap.Error(err))
	}
	m.reopen(def)
}

// reopen recreates the engine of def after it was closed for a rebuild.
// The rebuilt index was empty, so nothing is lost.
func (m *Manager) reopen(def schema.SearchIndex) {
	if path := m.indexPath(def.Name); path != "" {
		_ = os.RemoveAll(path)
	}
	e, err := m.openEngine(def)
	if err != nil {
		m.logger.Error("reopen index failed", zap.String("index", def.Name), zap.Error(err))
		delete(m.engines, def.Name)
		return
	}
	m.engines[def.Name] = e
}

func sameFields(a, b []schema.SearchField) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// additive reports whether next keeps every field of prev unchanged and
// only appends new ones.
func additive(prev, next []schema.SearchField) bool {
	if len(next) <= len(prev) {
		return false
	}
	byName := make(map[string]schema.SearchField, len(next))
	for _, f := range next {
		byName[f.Name] = f
	}
	for _, f := range prev {
		nf, ok := byName[f.Name]
		if !ok || !f.Equal(nf) {
			return false
		}
	}
	return true
}

func (m *Manager) GetIndex(name string) (schema.SearchIndex, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.engines[name]
	if !ok {
		return schema.SearchIndex{}, fmt.Errorf("%w: %q", ErrIndexNotFound, name)
	}
	return e.def, nil
}

// ListIndexes returns every index definition ordered by name.
func (m *Manager) ListIndexes() []schema.SearchIndex {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]schema.SearchIndex, 0, len(m.engines))
	for _, e := range m.engines {
		out = append(out, e.def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *Manager) DeleteIndex(ctx context.Context, name, ifMatch string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.engines[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrIndexNotFound, name)
	}
	if !etagMatches(ifMatch, e.def.ETag) {
		return ErrPreconditionFailed
	}
	if err := m.store.DeleteIndex(ctx, name); err != nil {
		return err
	}
	delete(m.engines, name)
	if err := e.Close(); err != nil {
		m.logger.Warn("close deleted index", zap.String("index", name), zap.Error(err))
	}
	if path := m.indexPath(name); path != "" {
		if err := os.RemoveAll(path); err != nil {
			return err
		}
	}
	m.logger.Info("index deleted", zap.String("index", name))
	return nil
}

// Documents returns the engine serving the documents of an index.
func (m *Manager) Documents(name string) (Engine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrManagerClosed
	}
	e, ok := m.engines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrIndexNotFound, name)
	}
	return e, nil
}

func (m *Manager) Statistics(ctx context.Context, name string) (IndexStatistics, error) {
	e, err := m.Documents(name)
	if err != nil {
		return IndexStatistics{}, err
	}
	n, err := e.Count(ctx)
	if err != nil {
		return IndexStatistics{}, err
	}
	return IndexStatistics{DocumentCount: n}, nil
}

// CreateOrUpdateSynonymMap stores sm. The bool result is true when the map
// was created.
func (m *Manager) CreateOrUpdateSynonymMap(ctx context.Context, sm schema.SynonymMap, ifMatch string) (schema.SynonymMap, bool, error) {
	if sm.Format == "" {
		sm.Format = schema.SynonymMapFormatSolr
	}
	if err := sm.Validate(); err != nil {
		return schema.SynonymMap{}, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return schema.SynonymMap{}, false, ErrManagerClosed
	}
	current, exists := m.synonyms[sm.Name]
	switch {
	case exists && !etagMatches(ifMatch, current.ETag):
		return schema.SynonymMap{}, false, ErrPreconditionFailed
	case !exists && ifMatch != "" && ifMatch != "*":
		return schema.SynonymMap{}, false, ErrPreconditionFailed
	}
	sm.ETag = uuid.NewString()
	if err := m.store.SaveSynonymMap(ctx, sm); err != nil {
		return schema.SynonymMap{}, false, err
	}
	m.synonyms[sm.Name] = sm
	return sm, !exists, nil
}

func (m *Manager) GetSynonymMap(name string) (schema.SynonymMap, error) {
	sm, ok := m.lookupSynonymMap(name)
	if !ok {
		return schema.SynonymMap{}, fmt.Errorf("%w: %q", ErrSynonymMapNotFound, name)
	}
	return sm, nil
}

func (m *Manager) ListSynonymMaps() []schema.SynonymMap {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]schema.SynonymMap, 0, len(m.synonyms))
	for _, sm := range m.synonyms {
		out = append(out, sm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DeleteSynonymMap removes a synonym map that no index references.
func (m *Manager) DeleteSynonymMap(ctx context.Context, name, ifMatch string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sm, ok := m.synonyms[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrSynonymMapNotFound, name)
	}
	if !etagMatches(ifMatch, sm.ETag) {
		return ErrPreconditionFailed
	}
	for _, e := range m.engines {
		for _, used := range e.def.SynonymMapNames() {
			if used == name {
				return fmt.Errorf("%w: %q is used by index %q", ErrSynonymMapInUse, name, e.def.Name)
			}
		}
	}
	if err := m.store.DeleteSynonymMap(ctx, name); err != nil {
		return err
	}
	delete(m.synonyms, name)
	return nil
}

// Close closes every open index. The manager cannot be used afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	var firstErr error
	for name, e := range m.engines {
		if err := e.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close index %q: %w", name, err)
		}
	}
	m.engines = map[string]*bleveEngine{}
	return firstErr
}
