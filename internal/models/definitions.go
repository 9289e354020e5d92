package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/code-100-precent/LingSearch/pkg/schema"
	"github.com/code-100-precent/LingSearch/pkg/search"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IndexDefinition 索引定义
type IndexDefinition struct {
	BaseModel
	Name string `json:"name" gorm:"size:128;uniqueIndex"`
	ETag string `json:"etag" gorm:"column:etag;size:64"`
	Body string `json:"-" gorm:"type:text"` // SearchIndex JSON
}

// SynonymMapDefinition 同义词表
type SynonymMapDefinition struct {
	BaseModel
	Name     string `json:"name" gorm:"size:128;uniqueIndex"`
	ETag     string `json:"etag" gorm:"column:etag;size:64"`
	Format   string `json:"format" gorm:"size:20"`
	Synonyms string `json:"synonyms" gorm:"type:text"`
}

// DefinitionStore persists definitions through gorm.
type DefinitionStore struct {
	db *gorm.DB
}

var _ search.DefinitionStore = (*DefinitionStore)(nil)

func NewDefinitionStore(db *gorm.DB) *DefinitionStore {
	return &DefinitionStore{db: db}
}

// Models lists the tables the store needs migrated.
func Models() []any {
	return []any{&IndexDefinition{}, &SynonymMapDefinition{}}
}

func (s *DefinitionStore) LoadIndexes(ctx context.Context) ([]schema.SearchIndex, error) {
	var rows []IndexDefinition
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]schema.SearchIndex, 0, len(rows))
	for _, row := range rows {
		var idx schema.SearchIndex
		if err := json.Unmarshal([]byte(row.Body), &idx); err != nil {
			return nil, err
		}
		idx.Name = row.Name
		idx.ETag = row.ETag
		out = append(out, idx)
	}
	return out, nil
}

func (s *DefinitionStore) SaveIndex(ctx context.Context, idx schema.SearchIndex) error {
	body, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	row := &IndexDefinition{Name: idx.Name, ETag: idx.ETag, Body: string(body)}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]any{"etag": row.ETag, "body": row.Body, "updated_at": time.Now()}),
	}).Create(row).Error
}

func (s *DefinitionStore) DeleteIndex(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Where("name = ?", name).Delete(&IndexDefinition{}).Error
}

func (s *DefinitionStore) LoadSynonymMaps(ctx context.Context) ([]schema.SynonymMap, error) {
	var rows []SynonymMapDefinition
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]schema.SynonymMap, 0, len(rows))
	for _, row := range rows {
		out = append(out, schema.SynonymMap{Name: row.Name, Format: row.Format, Synonyms: row.Synonyms, ETag: row.ETag})
	}
	return out, nil
}

func (s *DefinitionStore) SaveSynonymMap(ctx context.Context, m schema.SynonymMap) error {
	row := &SynonymMapDefinition{Name: m.Name, ETag: m.ETag, Format: m.Format, Synonyms: m.Synonyms}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]any{
			"etag":      row.ETag,
			"format":     row.Format,
			"synonyms":   row.Synonyms,
			"updated_at": time.Now(),
		}),
	}).Create(row).Error
}

func (s *DefinitionStore) DeleteSynonymMap(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Where("name = ?", name).Delete(&SynonymMapDefinition{}).Error
}
