package db

import (
	"context"
	"fmt"
	"time"
)

// StatsTotals stores table-level counts.
type StatsTotals struct {
	Perceptions         int64 `json:"perceptions"`
	PerceptionsEmbedded int64 `json:"perceptions_embedded"`
	Worldviews          int64 `json:"worldviews"`
	WorldviewsEmbedded  int64 `json:"worldviews_embedded"`
	Links               int64 `json:"links"`
	LinkedPerceptions   int64 `json:"linked_perceptions"`
	LogicEntries        int64 `json:"logic_entries"`
	Clusters            int64 `json:"clusters"`
}

// MethodCount stores link counts per resolution method.
type MethodCount struct {
	Method   string  `json:"method"`
	Links    int64   `json:"links"`
	AvgScore float64 `json:"avg_score"`
}

// WorldviewCount stores the perception count for one worldview.
type WorldviewCount struct {
	WorldviewID string `json:"worldview_id"`
	Title       string `json:"title"`
	Level       int16  `json:"level"`
	Perceptions int64  `json:"perceptions"`
}

// WorldviewStats is the read model returned by the stats command.
type WorldviewStats struct {
	GeneratedAt   time.Time        `json:"generated_at"`
	Totals        StatsTotals      `json:"totals"`
	Methods       []MethodCount    `json:"methods"`
	TopWorldviews []WorldviewCount `json:"top_worldviews"`
}

// QueryWorldviewStats returns table totals, link counts per method and the
// worldviews holding the most perceptions.
func (p *Pool) QueryWorldviewStats(ctx context.Context, now time.Time, topN int) (*WorldviewStats, error) {
	if topN <= 0 {
		topN = 10
	}
	stats := &WorldviewStats{
		GeneratedAt:   now.UTC(),
		Methods:       make([]MethodCount, 0, 4),
		TopWorldviews: make([]WorldviewCount, 0, topN),
	}

	const totalsQuery = `
SELECT
	(SELECT COUNT(*) FROM perceptions)::BIGINT,
	(SELECT COUNT(*) FROM perceptions WHERE embedding IS NOT NULL)::BIGINT,
	(SELECT COUNT(*) FROM worldviews WHERE archived = FALSE)::BIGINT,
	(SELECT COUNT(*) FROM worldviews WHERE archived = FALSE AND embedding IS NOT NULL)::BIGINT,
	(SELECT COUNT(*) FROM perception_worldview_links)::BIGINT,
	(SELECT COUNT(DISTINCT perception_id) FROM perception_worldview_links)::BIGINT,
	(SELECT COUNT(*) FROM logic_repository)::BIGINT,
	(SELECT COUNT(*) FROM logic_clusters)::BIGINT
`
	if err := p.QueryRow(ctx, totalsQuery).Scan(
		&stats.Totals.Perceptions,
		&stats.Totals.PerceptionsEmbedded,
		&stats.Totals.Worldviews,
		&stats.Totals.WorldviewsEmbedded,
		&stats.Totals.Links,
		&stats.Totals.LinkedPerceptions,
		&stats.Totals.LogicEntries,
		&stats.Totals.Clusters,
	); err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}

	const methodsQuery = `
SELECT method, COUNT(*)::BIGINT, COALESCE(AVG(relevance_score), 0)::DOUBLE PRECISION
FROM perception_worldview_links
GROUP BY method
ORDER BY method ASC
`
	rows, err := p.Query(ctx, methodsQuery)
	if err != nil {
		return nil, fmt.Errorf("query method counts: %w", err)
	}
	for rows.Next() {
		var item MethodCount
		if err := rows.Scan(&item.Method, &item.Links, &item.AvgScore); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan method count: %w", err)
		}
		stats.Methods = append(stats.Methods, item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate method counts: %w", err)
	}
	rows.Close()

	const topQuery = `
SELECT w.id::text, w.title, w.level, COUNT(l.link_id)::BIGINT AS perceptions
FROM worldviews w
JOIN perception_worldview_links l ON l.worldview_id = w.id
WHERE w.archived = FALSE
GROUP BY w.id, w.title, w.level
ORDER BY perceptions DESC, w.title ASC
LIMIT $1
`
	rows, err = p.Query(ctx, topQuery, topN)
	if err != nil {
		return nil, fmt.Errorf("query top worldviews: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item WorldviewCount
		if err := rows.Scan(&item.WorldviewID, &item.Title, &item.Level, &item.Perceptions); err != nil {
			return nil, fmt.Errorf("scan top worldview: %w", err)
		}
		stats.TopWorldviews = append(stats.TopWorldviews, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top worldviews: %w", err)
	}

	return stats, nil
}
