package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PerceptionFilter struct {
	RequireMechanisms bool
	MissingEmbedding  bool
	Limit             int
}

// ListPerceptions returns perceptions in creation order.
func (p *Pool) ListPerceptions(ctx context.Context, filter PerceptionFilter) ([]Perception, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	query := p.gdb.WithContext(ctx).Model(&Perception{})
	if filter.RequireMechanisms {
		query = query.Where("jsonb_array_length(mechanisms) > 0")
	}
	if filter.MissingEmbedding {
		query = query.Where("embedding IS NULL")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []Perception
	if err := query.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list perceptions: %w", err)
	}
	return rows, nil
}

func (p *Pool) UpdatePerceptionEmbedding(ctx context.Context, id string, values []float32) error {
	return p.updateEmbedding(ctx, &Perception{}, "embedding", id, values)
}

// UpsertPerceptions inserts or replaces imported perceptions by id. Replacing
// content clears the stored embedding unless the import carries one.
func (p *Pool) UpsertPerceptions(ctx context.Context, rows []Perception) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := p.gdb.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"content_id",
			"deep_beliefs",
			"implicit_assumptions",
			"keywords",
			"mechanisms",
			"actor",
			"embedding",
		}),
	}).CreateInBatches(rows, linkInsertBatchSize)
	if res.Error != nil {
		return 0, fmt.Errorf("upsert perceptions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (p *Pool) updateEmbedding(ctx context.Context, model any, column, id string, values []float32) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}
	if len(values) == 0 {
		return fmt.Errorf("embedding for %s is empty", id)
	}
	res := p.gdb.WithContext(ctx).Model(model).Where("id = ?", id).Update(column, NewVector(values))
	if res.Error != nil {
		return fmt.Errorf("update %s id=%s: %w", column, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update %s id=%s: %w", column, id, gorm.ErrRecordNotFound)
	}
	return nil
}
