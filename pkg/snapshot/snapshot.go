// Package snapshot exports index and synonym map definitions to a blob store
// and restores them into a running manager.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/code-100-precent/LingSearch/pkg/schema"
	stores "github.com/code-100-precent/LingSearch/pkg/storage"
	"github.com/code-100-precent/LingSearch/pkg/utils"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	// Prefix is the key prefix every snapshot is written under.
	Prefix     = "snapshots/"
	timeLayout = "20060102_150405"
	version    = 1
)

// Catalog is the part of the index manager a snapshot reads and writes.
type Catalog interface {
	ListIndexes() []schema.SearchIndex
	ListSynonymMaps() []schema.SynonymMap
	CreateOrUpdateIndex(ctx context.Context, idx schema.SearchIndex, ifMatch string) (schema.SearchIndex, bool, error)
	CreateOrUpdateSynonymMap(ctx context.Context, sm schema.SynonymMap, ifMatch string) (schema.SynonymMap, bool, error)
}

// Document is the JSON body of one snapshot.
type Document struct {
	Version     int                  `json:"version"`
	CreatedAt   time.Time            `json:"createdAt"`
	Indexes     []schema.SearchIndex `json:"indexes"`
	SynonymMaps []schema.SynonymMap  `json:"synonymMaps"`
}

// RestoreResult counts what Restore applied.
type RestoreResult struct {
	Indexes     int `json:"indexes"`
	SynonymMaps int `json:"synonymMaps"`
}

type Exporter struct {
	catalog Catalog
	store   stores.Store
	logger  *zap.Logger
	now     func() time.Time
	cron    *cron.Cron
	lock    Lock
	lockTTL time.Duration
}

func NewExporter(catalog Catalog, store stores.Store, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.L()
	}
	return &Exporter{
		catalog: catalog,
		store:   store,
		logger:  logger.Named("snapshot"),
		now:     time.Now,
	}
}

// Key returns the blob key of a snapshot taken at t.
func Key(t time.Time) string {
	return path.Join(Prefix, fmt.Sprintf("definitions-%s.json", t.UTC().Format(timeLayout)))
}

// Export writes all definitions as one document and returns its key.
func (e *Exporter) Export(ctx context.Context) (string, error) {
	now := e.now()
	doc := Document{
		Version:     version,
		CreatedAt:   now.UTC(),
		Indexes:     e.catalog.ListIndexes(),
		SynonymMaps: e.catalog.ListSynonymMaps(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	key := Key(now)
	if err := e.store.Write(ctx, key, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("snapshot: write %s: %w", key, err)
	}
	e.logger.Info("snapshot exported",
		zap.String("key", key),
		zap.Int("indexes", len(doc.Indexes)),
		zap.Int("synonymMaps", len(doc.SynonymMaps)))
	return key, nil
}

// Latest returns the newest snapshot key, or "" when none exist.
func (e *Exporter) Latest(ctx context.Context) (string, error) {
	keys, err := e.store.List(ctx, Prefix)
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "", nil
	}
	sort.Strings(keys)
	return keys[len(keys)-1], nil
}

// Load reads and decodes the snapshot stored under key.
func Load(ctx context.Context, store stores.Store, key string) (Document, error) {
	var doc Document
	r, _, err := store.Read(ctx, key)
	if err != nil {
		return doc, fmt.Errorf("snapshot: read %s: %w", key, err)
	}
	defer r.Close()
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return doc, fmt.Errorf("snapshot: decode %s: %w", key, err)
	}
	if doc.Version != version {
		return doc, fmt.Errorf("snapshot: unsupported version %d", doc.Version)
	}
	return doc, nil
}

// Restore re-creates the definitions of the snapshot under key. Synonym
// maps go first so indexes referencing them validate.
func Restore(ctx context.Context, store stores.Store, key string, catalog Catalog) (RestoreResult, error) {
	var res RestoreResult
	doc, err := Load(ctx, store, key)
	if err != nil {
		return res, err
	}
	for _, sm := range doc.SynonymMaps {
		sm.ETag = ""
		if _, _, err := catalog.CreateOrUpdateSynonymMap(ctx, sm, ""); err != nil {
			return res, fmt.Errorf("snapshot: restore synonym map %q: %w", sm.Name, err)
		}
		res.SynonymMaps++
	}
	for _, idx := range doc.Indexes {
		idx.ETag = ""
		if _, _, err := catalog.CreateOrUpdateIndex(ctx, idx, ""); err != nil {
			return res, fmt.Errorf("snapshot: restore index %q: %w", idx.Name, err)
		}
		res.Indexes++
	}
	return res, nil
}

// WithLock makes scheduled exports skip a run while another holder has
// the lock. ttl bounds how long a crashed holder blocks others.
func (e *Exporter) WithLock(lock Lock, ttl time.Duration) *Exporter {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	e.lock = lock
	e.lockTTL = ttl
	return e
}

// runScheduled exports once, unless another holder has the lock
func (e *Exporter) runScheduled(ctx context.Context) error {
	if e.lock != nil {
		ok, err := e.lock.Lock(ctx, "export", e.lockTTL)
		if err != nil {
			return err
		}
		if !ok {
			e.logger.Debug("snapshot skipped, lock held elsewhere")
			return nil
		}
		defer func() {
			if err := e.lock.Unlock(ctx, "export"); err != nil {
				e.logger.Warn("release snapshot lock failed", zap.Error(err))
			}
		}()
	}
	_, err := e.Export(ctx)
	return err
}

// Schedule runs Export on a cron spec until Stop is called.
func (e *Exporter) Schedule(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		err := utils.SafeCall(func() error {
			return e.runScheduled(context.Background())
		}, func(err error) {
			e.logger.Error("snapshot panicked", zap.Error(err))
		})
		if err != nil {
			e.logger.Warn("snapshot failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("snapshot: invalid schedule %q: %w", spec, err)
	}
	e.cron = c
	c.Start()
	return nil
}

// Stop halts the schedule and waits for a running export.
func (e *Exporter) Stop() {
	if e.cron != nil {
		<-e.cron.Stop().Done()
	}
}
