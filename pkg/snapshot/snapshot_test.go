package snapshot

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/code-100-precent/LingSearch/pkg/cache"
	"github.com/code-100-precent/LingSearch/pkg/schema"
	"github.com/code-100-precent/LingSearch/pkg/search"
	stores "github.com/code-100-precent/LingSearch/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newManager(t *testing.T) *search.Manager {
	t.Helper()
	m := search.NewManager(search.Config{}, nil, zap.NewNop())
	require.NoError(t, m.Open(context.Background()))
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func newStore(t *testing.T) stores.Store {
	t.Helper()
	s, err := stores.New(stores.Config{Kind: stores.KindLocal, Local: stores.LocalStore{Root: t.TempDir()}})
	require.NoError(t, err)
	return s
}

func seed(t *testing.T, m *search.Manager) {
	t.Helper()
	ctx := context.Background()
	_, _, err := m.CreateOrUpdateSynonymMap(ctx, schema.NewSynonymMap("colors", "red, crimson"), "")
	require.NoError(t, err)
	idx := schema.NewSearchIndex("paints",
		schema.SearchField{Name: "id", Type: schema.TypeString, Key: true, Stored: true},
		schema.SearchField{Name: "title", Type: schema.TypeString, Searchable: true, Stored: true, SynonymMaps: []string{"colors"}},
	)
	_, _, err = m.CreateOrUpdateIndex(ctx, idx, "")
	require.NoError(t, err)
}

func TestKey(t *testing.T) {
	ts := time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC)
	assert.Equal(t, "snapshots/definitions-20240305_070809.json", Key(ts))
}

func TestExportAndRestore(t *testing.T) {
	ctx := context.Background()
	src := newManager(t)
	seed(t, src)
	store := newStore(t)

	e := NewExporter(src, store, zap.NewNop())
	e.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	key, err := e.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, "snapshots/definitions-20240101_000000.json", key)

	doc, err := Load(ctx, store, key)
	require.NoError(t, err)
	require.Len(t, doc.Indexes, 1)
	require.Len(t, doc.SynonymMaps, 1)

	dst := newManager(t)
	res, err := Restore(ctx, store, key, dst)
	require.NoError(t, err)
	assert.Equal(t, RestoreResult{Indexes: 1, SynonymMaps: 1}, res)

	idx, err := dst.GetIndex("paints")
	require.NoError(t, err)
	assert.Equal(t, []string{"colors"}, idx.Fields[1].SynonymMaps)
	sm, err := dst.GetSynonymMap("colors")
	require.NoError(t, err)
	assert.Equal(t, "red, crimson", sm.Synonyms)

	// restoring twice is a no-op update
	_, err = Restore(ctx, store, key, dst)
	require.NoError(t, err)
}

func TestLatest(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	e := NewExporter(newManager(t), store, zap.NewNop())

	latest, err := e.Latest(ctx)
	require.NoError(t, err)
	assert.Empty(t, latest)

	for _, d := range []int{1, 3, 2} {
		day := d
		e.now = func() time.Time { return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC) }
		_, err := e.Export(ctx)
		require.NoError(t, err)
	}
	latest, err = e.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "snapshots/definitions-20240103_000000.json", latest)
}

func TestLoad_Invalid(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := Load(ctx, store, "snapshots/missing.json")
	assert.Error(t, err)

	require.NoError(t, store.Write(ctx, "snapshots/bad.json", bytes.NewBufferString("{")))
	_, err = Load(ctx, store, "snapshots/bad.json")
	assert.Error(t, err)

	require.NoError(t, store.Write(ctx, "snapshots/v9.json", bytes.NewBufferString(`{"version":9}`)))
	_, err = Load(ctx, store, "snapshots/v9.json")
	assert.ErrorContains(t, err, "unsupported version")
}

func TestSchedule(t *testing.T) {
	e := NewExporter(newManager(t), newStore(t), zap.NewNop())
	assert.Error(t, e.Schedule("not a cron spec"))
	require.NoError(t, e.Schedule("@every 1h"))
	e.Stop()
}

func TestCacheLock(t *testing.T) {
	ctx := context.Background()
	lock := NewCacheLock(cache.NewLocalCache(cache.LocalConfig{}))

	ok, err := lock.Lock(ctx, "export", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.Lock(ctx, "export", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock.Unlock(ctx, "export"))
	ok, err = lock.Lock(ctx, "export", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunScheduled_SkipsWhileLocked(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	seed(t, m)
	store := newStore(t)
	lock := NewCacheLock(cache.NewLocalCache(cache.LocalConfig{}))
	e := NewExporter(m, store, zap.NewNop()).WithLock(lock, time.Minute)

	held, err := lock.Lock(ctx, "export", time.Minute)
	require.NoError(t, err)
	require.True(t, held)
	require.NoError(t, e.runScheduled(ctx))
	keys, err := store.List(ctx, Prefix)
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, lock.Unlock(ctx, "export"))
	require.NoError(t, e.runScheduled(ctx))
	keys, err = store.List(ctx, Prefix)
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	// the lock is released after the run
	ok, err := lock.Lock(ctx, "export", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
