package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrWorldviewNotFound = errors.New("worldview not found")

type WorldviewFilter struct {
	// Version filters on version when > 0.
	Version          int
	IncludeArchived  bool
	Levels           []int16
	ParentID         string
	HierarchicalOnly bool
	MissingEmbedding bool
	Limit            int
	Offset           int
}

// ListWorldviews returns worldviews ordered by level, then creation.
func (p *Pool) ListWorldviews(ctx context.Context, filter WorldviewFilter) ([]Worldview, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	var rows []Worldview
	if err := worldviewQuery(p.gdb.WithContext(ctx), filter).
		Order("level ASC, created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list worldviews: %w", err)
	}
	return rows, nil
}

func (p *Pool) CountWorldviews(ctx context.Context, filter WorldviewFilter) (int64, error) {
	filter.Limit = 0
	filter.Offset = 0
	var total int64
	if err := worldviewQuery(p.gdb.WithContext(ctx), filter).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count worldviews: %w", err)
	}
	return total, nil
}

func worldviewQuery(tx *gorm.DB, filter WorldviewFilter) *gorm.DB {
	query := tx.Model(&Worldview{})
	if filter.Version > 0 {
		query = query.Where("version = ?", filter.Version)
	}
	if !filter.IncludeArchived {
		query = query.Where("archived = ?", false)
	}
	if len(filter.Levels) > 0 {
		query = query.Where("level IN ?", filter.Levels)
	}
	if parent := strings.TrimSpace(filter.ParentID); parent != "" {
		query = query.Where("parent_worldview_id = ?", parent)
	}
	if filter.HierarchicalOnly {
		query = query.Where("strpos(title, '>') > 0")
	}
	if filter.MissingEmbedding {
		query = query.Where("embedding IS NULL")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	return query
}

func (p *Pool) GetWorldview(ctx context.Context, id string) (*Worldview, error) {
	var row Worldview
	err := p.gdb.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWorldviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get worldview %s: %w", id, err)
	}
	return &row, nil
}

func (p *Pool) UpdateWorldviewEmbedding(ctx context.Context, id string, values []float32) error {
	return p.updateEmbedding(ctx, &Worldview{}, "embedding", id, values)
}

// UpsertWorldviews inserts or replaces imported worldviews by id. Link
// statistics are left to RefreshWorldviewStats.
func (p *Pool) UpsertWorldviews(ctx context.Context, rows []Worldview) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := p.gdb.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"title":               gorm.Expr("excluded.title"),
			"frame":               gorm.Expr("excluded.frame"),
			"level":               gorm.Expr("excluded.level"),
			"parent_worldview_id": gorm.Expr("excluded.parent_worldview_id"),
			"version":             gorm.Expr("excluded.version"),
			"archived":            gorm.Expr("excluded.archived"),
			"embedding":           gorm.Expr("excluded.embedding"),
			"updated_at":          gorm.Expr("now()"),
		}),
	}).CreateInBatches(rows, linkInsertBatchSize)
	if res.Error != nil {
		return 0, fmt.Errorf("upsert worldviews: %w", res.Error)
	}
	return res.RowsAffected, nil
}
