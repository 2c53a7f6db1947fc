package db

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gorm.io/gorm"
)

const linkInsertBatchSize = 100

// linkRows drops repeated (perception, worldview) pairs, keeping the first,
// and clamps scores to [0,1].
func linkRows(links []LinkInput) []PerceptionWorldviewLink {
	rows := make([]PerceptionWorldviewLink, 0, len(links))
	seen := make(map[[2]string]struct{}, len(links))
	for _, link := range links {
		key := [2]string{link.PerceptionID, link.WorldviewID}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		rows = append(rows, PerceptionWorldviewLink{
			PerceptionID:   link.PerceptionID,
			WorldviewID:    link.WorldviewID,
			RelevanceScore: math.Max(0, math.Min(1, link.Score)),
			Method:         link.Method,
		})
	}
	return rows
}

// LinkInput is one perception to worldview assignment.
type LinkInput struct {
	PerceptionID string
	WorldviewID  string
	Score        float64
	Method       string
}

// ReplaceLinks deletes every existing link and inserts links in one
// transaction, so readers never observe a half-written table.
func (p *Pool) ReplaceLinks(ctx context.Context, links []LinkInput) (int64, error) {
	rows := linkRows(links)

	var inserted int64
	err := p.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM perception_worldview_links`).Error; err != nil {
			return fmt.Errorf("delete links: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		res := tx.CreateInBatches(rows, linkInsertBatchSize)
		if res.Error != nil {
			return fmt.Errorf("insert links: %w", res.Error)
		}
		inserted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// RefreshWorldviewStats recomputes perception_ids and total_perceptions for
// every worldview from the link table. Worldviews without links reset to
// empty.
func (p *Pool) RefreshWorldviewStats(ctx context.Context) (int64, error) {
	const query = `
UPDATE worldviews w
SET
	perception_ids = COALESCE(agg.ids, '[]'::jsonb),
	total_perceptions = COALESCE(agg.total, 0),
	updated_at = now()
FROM worldviews w2
LEFT JOIN (
	SELECT
		l.worldview_id,
		jsonb_agg(DISTINCT l.perception_id::text) AS ids,
		COUNT(DISTINCT l.perception_id)::INT AS total
	FROM perception_worldview_links l
	GROUP BY l.worldview_id
) agg ON agg.worldview_id = w2.id
WHERE w.id = w2.id
`
	tag, err := p.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("refresh worldview stats: %w", err)
	}
	return tag.RowsAffected(), nil
}

type LinkFilter struct {
	PerceptionID string
	WorldviewID  string
	Method       string
	Limit        int
}

// ListLinks returns links ordered by descending relevance.
func (p *Pool) ListLinks(ctx context.Context, filter LinkFilter) ([]PerceptionWorldviewLink, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}
	query := p.gdb.WithContext(ctx).Model(&PerceptionWorldviewLink{})
	if id := strings.TrimSpace(filter.PerceptionID); id != "" {
		query = query.Where("perception_id = ?", id)
	}
	if id := strings.TrimSpace(filter.WorldviewID); id != "" {
		query = query.Where("worldview_id = ?", id)
	}
	if method := strings.TrimSpace(filter.Method); method != "" {
		query = query.Where("method = ?", method)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []PerceptionWorldviewLink
	if err := query.Order("relevance_score DESC, link_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return rows, nil
}
