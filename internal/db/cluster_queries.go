package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type LogicFilter struct {
	RequireEmbedding bool
	MissingEmbedding bool
	Limit            int
}

// ListLogicEntries returns logic rows in creation order.
func (p *Pool) ListLogicEntries(ctx context.Context, filter LogicFilter) ([]LogicEntry, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}
	query := p.gdb.WithContext(ctx).Model(&LogicEntry{})
	if filter.RequireEmbedding {
		query = query.Where("embedding IS NOT NULL")
	}
	if filter.MissingEmbedding {
		query = query.Where("embedding IS NULL")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []LogicEntry
	if err := query.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list logic entries: %w", err)
	}
	return rows, nil
}

func (p *Pool) UpdateLogicEmbedding(ctx context.Context, id string, values []float32) error {
	return p.updateEmbedding(ctx, &LogicEntry{}, "embedding", id, values)
}

// ClusterInput is one cluster to persist with its member logic ids.
type ClusterInput struct {
	Name           string
	ContextIssue   *string
	Strategy       string
	Keywords       []string
	Representative []float32
	MemberIDs      []string
}

// ReplaceClusters clears every cluster assignment, drops existing clusters
// and writes clusters in one transaction.
func (p *Pool) ReplaceClusters(ctx context.Context, clusters []ClusterInput) (int, error) {
	created := 0
	err := p.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Exec(`UPDATE logic_repository SET cluster_id = NULL WHERE cluster_id IS NOT NULL`).Error; err != nil {
			return fmt.Errorf("reset cluster assignments: %w", err)
		}
		if err := tx.Exec(`DELETE FROM logic_clusters`).Error; err != nil {
			return fmt.Errorf("delete clusters: %w", err)
		}

		for i, in := range clusters {
			row := LogicCluster{
				ClusterName:             in.Name,
				ContextIssue:            in.ContextIssue,
				Strategy:                in.Strategy,
				Keywords:                StringList(in.Keywords),
				RepresentativeEmbedding: NewVector(in.Representative),
				LogicCount:              len(in.MemberIDs),
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("insert cluster %d: %w", i, err)
			}
			if len(in.MemberIDs) > 0 {
				if err := tx.Model(&LogicEntry{}).
					Where("id IN ?", in.MemberIDs).
					Update("cluster_id", row.ID).Error; err != nil {
					return fmt.Errorf("assign cluster %s: %w", row.ID, err)
				}
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// ListClusters returns clusters largest first.
func (p *Pool) ListClusters(ctx context.Context, limit int) ([]LogicCluster, error) {
	query := p.gdb.WithContext(ctx).Model(&LogicCluster{}).Order("logic_count DESC, created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []LogicCluster
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}
	return rows, nil
}
