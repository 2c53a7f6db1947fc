package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/philo-kim/moniterdc-sub001/internal/db"
	"github.com/philo-kim/moniterdc-sub001/internal/globaltime"
	"github.com/philo-kim/moniterdc-sub001/internal/matcher"
)

type MatchOptions struct {
	// AllWorldviews matches against every non-archived worldview instead of
	// only "parent > child" titled ones.
	AllWorldviews bool
	Limit         int
	Threshold     float64
	DryRun        bool
	Progress      Progress
}

type MatchResult struct {
	Perceptions       int
	Worldviews        int
	EmbeddingResolved int
	JudgeResolved     int
	JudgeFallback     int
	Failed            int
	LinksWritten      int64
	WorldviewsUpdated int64
	EmbeddingsStored  int
	Threshold         float64
	DryRun            bool
	Duration          time.Duration
}

// MatchPending assigns every perception to its single best worldview and
// rewrites the link table with the outcome.
func (s *Service) MatchPending(ctx context.Context, opts MatchOptions) (MatchResult, error) {
	started := globaltime.UTC()
	result := MatchResult{DryRun: opts.DryRun}
	if err := s.ready(); err != nil {
		return result, err
	}
	if err := s.requireEmbedder(); err != nil {
		return result, err
	}

	hybrid, err := matcher.NewHybrid(s.embedder, s.judge, matcher.Options{
		Threshold: opts.Threshold,
		Logger:    s.logger,
		Progress:  opts.Progress,
	})
	if err != nil {
		return result, err
	}
	result.Threshold = hybrid.Threshold()

	worldviews, err := s.store.ListWorldviews(ctx, db.WorldviewFilter{HierarchicalOnly: !opts.AllWorldviews})
	if err != nil {
		return result, err
	}
	if len(worldviews) == 0 {
		return result, ErrNoWorldviews
	}
	result.Worldviews = len(worldviews)

	stored, err := s.ensureWorldviewEmbeddings(ctx, worldviews, opts.DryRun)
	result.EmbeddingsStored += stored
	if err != nil {
		return result, err
	}

	categories := make([]matcher.Category, 0, len(worldviews))
	for _, row := range worldviews {
		frame, err := row.FrameValue()
		if err != nil {
			s.logger.Warn().Err(err).Str("worldview_id", row.ID).Msg("unreadable frame; matching without summary")
		}
		categories = append(categories, matcher.Category{
			ID:        row.ID,
			Title:     row.Title,
			Summary:   frame.SummaryText(),
			Embedding: db.VectorSlice(row.Embedding),
		})
	}

	perceptions, err := s.store.ListPerceptions(ctx, db.PerceptionFilter{Limit: opts.Limit})
	if err != nil {
		return result, err
	}
	if len(perceptions) == 0 {
		return result, ErrNoPerceptions
	}
	result.Perceptions = len(perceptions)

	items := make([]matcher.Item, 0, len(perceptions))
	for _, row := range perceptions {
		items = append(items, toMatcherItem(row))
	}

	batch, err := hybrid.MatchAll(ctx, items, categories)
	result.EmbeddingResolved = batch.EmbeddingResolved
	result.JudgeResolved = batch.JudgeResolved
	result.JudgeFallback = batch.JudgeFallback
	result.Failed = batch.Failed
	if err != nil {
		return result, err
	}

	if opts.DryRun {
		result.Duration = globaltime.Since(started)
		return result, nil
	}

	// Item vectors are persisted in input order so reruns skip the provider.
	for _, item := range items {
		values, ok := batch.Embeddings[item.ID]
		if !ok {
			continue
		}
		if err := s.store.UpdatePerceptionEmbedding(ctx, item.ID, values); err != nil {
			return result, fmt.Errorf("store perception embedding id=%s: %w", item.ID, err)
		}
		result.EmbeddingsStored++
	}

	links := make([]db.LinkInput, 0, len(batch.Links))
	for _, link := range batch.Links {
		links = append(links, db.LinkInput{
			PerceptionID: link.ItemID,
			WorldviewID:  link.CategoryID,
			Score:        link.Score,
			Method:       string(link.Method),
		})
	}
	if err := s.persistLinks(ctx, links, &result.LinksWritten, &result.WorldviewsUpdated); err != nil {
		return result, err
	}

	result.Duration = globaltime.Since(started)
	return result, nil
}

func (s *Service) persistLinks(ctx context.Context, links []db.LinkInput, written, refreshed *int64) error {
	n, err := s.store.ReplaceLinks(ctx, links)
	if err != nil {
		return fmt.Errorf("replace links: %w", err)
	}
	*written = n

	updated, err := s.store.RefreshWorldviewStats(ctx)
	if err != nil {
		return fmt.Errorf("refresh worldview stats: %w", err)
	}
	*refreshed = updated
	return nil
}
