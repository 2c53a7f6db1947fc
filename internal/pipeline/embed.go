package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/philo-kim/moniterdc-sub001/internal/db"
	"github.com/philo-kim/moniterdc-sub001/internal/matcher"
)

const DefaultEmbedBatchSize = 32

type Target string

const (
	TargetWorldviews  Target = "worldviews"
	TargetPerceptions Target = "perceptions"
	TargetLogic       Target = "logic"
)

func ParseTargets(raw string) ([]Target, error) {
	if strings.TrimSpace(raw) == "" {
		return []Target{TargetWorldviews}, nil
	}
	seen := make(map[Target]struct{})
	out := make([]Target, 0, 3)
	for _, part := range strings.Split(raw, ",") {
		target := Target(strings.ToLower(strings.TrimSpace(part)))
		switch target {
		case TargetWorldviews, TargetPerceptions, TargetLogic:
		case "":
			continue
		default:
			return nil, fmt.Errorf("unknown embed target %q (want worldviews, perceptions, or logic)", part)
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no embed targets given")
	}
	return out, nil
}

type EmbedOptions struct {
	Targets   []Target
	Limit     int
	BatchSize int
	Progress  Progress
}

type EmbedResult struct {
	Processed int
	Embedded  int
	Skipped   int
	Failed    int
}

func (r *EmbedResult) add(other EmbedResult) {
	r.Processed += other.Processed
	r.Embedded += other.Embedded
	r.Skipped += other.Skipped
	r.Failed += other.Failed
}

// embedJob is one row that needs a vector.
type embedJob struct {
	id   string
	text string
}

// EmbedPending computes and stores missing embeddings for the requested
// targets. Provider failures are counted per batch; a failed write aborts.
func (s *Service) EmbedPending(ctx context.Context, options EmbedOptions) (EmbedResult, error) {
	if err := s.ready(); err != nil {
		return EmbedResult{}, err
	}
	if err := s.requireEmbedder(); err != nil {
		return EmbedResult{}, err
	}
	opts := normalizeEmbedOptions(options)

	var total EmbedResult
	for _, target := range opts.Targets {
		jobs, update, err := s.pendingJobs(ctx, target, opts.Limit)
		if err != nil {
			return total, err
		}
		result, err := s.embedJobs(ctx, string(target), jobs, opts, update)
		total.add(result)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func normalizeEmbedOptions(opts EmbedOptions) EmbedOptions {
	if len(opts.Targets) == 0 {
		opts.Targets = []Target{TargetWorldviews}
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultEmbedBatchSize
	}
	if opts.Limit < 0 {
		opts.Limit = 0
	}
	return opts
}

type updateFunc func(ctx context.Context, id string, values []float32) error

func (s *Service) pendingJobs(ctx context.Context, target Target, limit int) ([]embedJob, updateFunc, error) {
	switch target {
	case TargetWorldviews:
		rows, err := s.store.ListWorldviews(ctx, db.WorldviewFilter{MissingEmbedding: true, Limit: limit})
		if err != nil {
			return nil, nil, err
		}
		jobs := make([]embedJob, 0, len(rows))
		for _, row := range rows {
			jobs = append(jobs, embedJob{id: row.ID, text: s.worldviewText(row)})
		}
		return jobs, s.store.UpdateWorldviewEmbedding, nil
	case TargetPerceptions:
		rows, err := s.store.ListPerceptions(ctx, db.PerceptionFilter{MissingEmbedding: true, Limit: limit})
		if err != nil {
			return nil, nil, err
		}
		jobs := make([]embedJob, 0, len(rows))
		for _, row := range rows {
			jobs = append(jobs, embedJob{id: row.ID, text: matcher.PrepareItemText(toMatcherItem(row))})
		}
		return jobs, s.store.UpdatePerceptionEmbedding, nil
	case TargetLogic:
		rows, err := s.store.ListLogicEntries(ctx, db.LogicFilter{MissingEmbedding: true, Limit: limit})
		if err != nil {
			return nil, nil, err
		}
		jobs := make([]embedJob, 0, len(rows))
		for _, row := range rows {
			jobs = append(jobs, embedJob{id: row.ID, text: strings.TrimSpace(row.CoreArgument)})
		}
		return jobs, s.store.UpdateLogicEmbedding, nil
	default:
		return nil, nil, fmt.Errorf("unknown embed target %q", target)
	}
}

func (s *Service) embedJobs(ctx context.Context, target string, jobs []embedJob, opts EmbedOptions, update updateFunc) (EmbedResult, error) {
	var result EmbedResult
	for start := 0; start < len(jobs); start += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		end := min(start+opts.BatchSize, len(jobs))

		batch := make([]embedJob, 0, end-start)
		for _, job := range jobs[start:end] {
			result.Processed++
			if job.text == "" {
				result.Skipped++
				s.logger.Warn().Str("target", target).Str("id", job.id).Msg("nothing to embed; skipping")
				continue
			}
			batch = append(batch, job)
		}
		if len(batch) == 0 {
			opts.Progress.report(result.Processed, len(jobs))
			continue
		}

		texts := make([]string, len(batch))
		for i, job := range batch {
			texts[i] = job.text
		}
		vectors, err := s.embedder.Embed(ctx, texts)
		if err == nil && len(vectors) != len(batch) {
			err = fmt.Errorf("embedding response count mismatch: requested=%d returned=%d", len(batch), len(vectors))
		}
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Failed += len(batch)
			s.logger.Warn().Err(err).Str("target", target).Int("batch_size", len(batch)).Msg("embedding batch failed; skipping")
			opts.Progress.report(result.Processed, len(jobs))
			continue
		}

		for i, job := range batch {
			if len(vectors[i]) == 0 {
				result.Failed++
				continue
			}
			if err := update(ctx, job.id, vectors[i]); err != nil {
				return result, fmt.Errorf("store %s embedding id=%s: %w", target, job.id, err)
			}
			result.Embedded++
		}
		opts.Progress.report(result.Processed, len(jobs))
	}
	return result, nil
}

func (s *Service) worldviewText(row db.Worldview) string {
	frame, err := row.FrameValue()
	if err != nil {
		s.logger.Warn().Err(err).Str("worldview_id", row.ID).Msg("unreadable frame; embedding title only")
	}
	return matcher.CategoryText(row.Title, frame.SummaryText(), frame.Narrative.LogicChain, frame.Concepts())
}

// ensureWorldviewEmbeddings fills missing worldview vectors in place. Vectors
// are persisted unless dryRun is set.
func (s *Service) ensureWorldviewEmbeddings(ctx context.Context, rows []db.Worldview, dryRun bool) (int, error) {
	missing := make([]int, 0)
	texts := make([]string, 0)
	for i, row := range rows {
		if row.Embedding != nil && len(row.Embedding.Slice()) > 0 {
			continue
		}
		text := s.worldviewText(row)
		if text == "" {
			continue
		}
		missing = append(missing, i)
		texts = append(texts, text)
	}
	if len(missing) == 0 {
		return 0, nil
	}
	if err := s.requireEmbedder(); err != nil {
		return 0, err
	}

	vectors, err := s.embedChunked(ctx, texts, DefaultEmbedBatchSize)
	if err != nil {
		return 0, fmt.Errorf("embed worldviews: %w", err)
	}

	stored := 0
	for i, idx := range missing {
		if len(vectors[i]) == 0 {
			continue
		}
		rows[idx].Embedding = db.NewVector(vectors[i])
		if dryRun {
			continue
		}
		if err := s.store.UpdateWorldviewEmbedding(ctx, rows[idx].ID, vectors[i]); err != nil {
			return stored, fmt.Errorf("store worldview embedding id=%s: %w", rows[idx].ID, err)
		}
		stored++
	}
	return stored, nil
}

func (s *Service) embedChunked(ctx context.Context, texts []string, size int) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		vectors, err := s.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("embedding response count mismatch: requested=%d returned=%d", end-start, len(vectors))
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func toMatcherItem(row db.Perception) matcher.Item {
	return matcher.Item{
		ID:                  row.ID,
		DeepBeliefs:         row.DeepBeliefs,
		ImplicitAssumptions: row.ImplicitAssumptions,
		Embedding:           db.VectorSlice(row.Embedding),
	}
}
