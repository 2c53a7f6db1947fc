package matcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/philo-kim/moniterdc-sub001/internal/judge"
	"github.com/philo-kim/moniterdc-sub001/internal/vector"
)

const DefaultSimilarityThreshold = 0.5

type Method string

const (
	MethodEmbedding     Method = "embedding"
	MethodJudge         Method = "judge"
	MethodJudgeFallback Method = "judge_fallback"
)

const (
	StagePrepare = "prepare"
	StageEmbed   = "embed"
	StageCompare = "compare"
	StageJudge   = "judge"
)

var (
	ErrNoCategoryEmbeddings = errors.New("no category has an embedding")
	ErrEmptyItemText        = errors.New("item has no text to embed")
)

// Embedder is the subset of an embedding provider the matcher needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Item struct {
	ID                  string
	DeepBeliefs         []string
	ImplicitAssumptions []string
	Embedding           []float32
}

type Category struct {
	ID        string
	Title     string
	Summary   string
	Embedding []float32
}

type Result struct {
	ItemID     string
	CategoryID string
	// Score is the similarity for embedding outcomes and the judge confidence
	// for judge outcomes.
	Score      float64
	Similarity float64
	Method     Method
	// Embedding is the item vector used for comparison, computed or reused.
	Embedding []float32
}

type Link struct {
	ItemID     string
	CategoryID string
	Score      float64
	Method     Method
}

type Failure struct {
	ItemID string
	Stage  string
	Err    error
}

type BatchResult struct {
	Total             int
	EmbeddingResolved int
	JudgeResolved     int
	JudgeFallback     int
	Failed            int
	Links             []Link
	Failures          []Failure
	// Embeddings holds vectors computed during the run, keyed by item id.
	Embeddings map[string][]float32
}

// StageError tags an item-level failure with the step that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

type Options struct {
	// Threshold is the inclusive cosine cut-off in (0,1]. Zero selects
	// DefaultSimilarityThreshold; a zero cut-off cannot be configured.
	Threshold float64
	Logger    zerolog.Logger
	// Progress, when set, is called after every item in MatchAll.
	Progress func(done, total int)
}

type Hybrid struct {
	embedder  Embedder
	judge     judge.Judge
	threshold float64
	logger    zerolog.Logger
	progress  func(done, total int)
}

// NewHybrid wires an embedder and an optional judge. A nil judge sends every
// sub-threshold item straight to the embedding fallback.
func NewHybrid(embedder Embedder, j judge.Judge, opts Options) (*Hybrid, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	threshold := opts.Threshold
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("similarity threshold must be within (0,1], got %g", threshold)
	}
	if threshold == 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &Hybrid{
		embedder:  embedder,
		judge:     j,
		threshold: threshold,
		logger:    opts.Logger,
		progress:  opts.Progress,
	}, nil
}

func (h *Hybrid) Threshold() float64 {
	return h.threshold
}

func (h *Hybrid) accepts(similarity float64) bool {
	return similarity >= h.threshold
}

// MatchItem assigns item to its single best category.
func (h *Hybrid) MatchItem(ctx context.Context, item Item, categories []Category) (Result, error) {
	result := Result{ItemID: item.ID}

	itemVector := item.Embedding
	if len(itemVector) == 0 {
		text := PrepareItemText(item)
		if text == "" {
			return result, &StageError{Stage: StagePrepare, Err: ErrEmptyItemText}
		}
		vectors, err := h.embedder.Embed(ctx, []string{text})
		if err != nil {
			return result, &StageError{Stage: StageEmbed, Err: err}
		}
		if len(vectors) != 1 || len(vectors[0]) == 0 {
			return result, &StageError{Stage: StageEmbed, Err: fmt.Errorf("embedding response missing vector")}
		}
		itemVector = vectors[0]
	}
	result.Embedding = itemVector

	candidates := make([][]float32, len(categories))
	for i, c := range categories {
		candidates[i] = c.Embedding
	}
	bestIndex, similarity := vector.Best(itemVector, candidates)
	if bestIndex < 0 {
		return result, &StageError{Stage: StageCompare, Err: ErrNoCategoryEmbeddings}
	}

	result.CategoryID = categories[bestIndex].ID
	result.Similarity = similarity
	result.Score = similarity

	if h.accepts(similarity) {
		result.Method = MethodEmbedding
		return result, nil
	}

	verdict, err := h.askJudge(ctx, item, categories)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		h.logger.Warn().
			Err(err).
			Str("item_id", item.ID).
			Str("stage", StageJudge).
			Float64("similarity", similarity).
			Msg("judge failed; using embedding match")
		result.Method = MethodJudgeFallback
		return result, nil
	}

	result.CategoryID = categories[verdict.Index].ID
	result.Score = verdict.Confidence
	result.Method = MethodJudge
	return result, nil
}

func (h *Hybrid) askJudge(ctx context.Context, item Item, categories []Category) (judge.Verdict, error) {
	if h.judge == nil {
		return judge.Verdict{}, fmt.Errorf("judge is disabled")
	}

	candidates := make([]judge.Candidate, 0, len(categories))
	for i, c := range categories {
		candidates = append(candidates, judge.Candidate{
			Index:   i,
			ID:      c.ID,
			Title:   c.Title,
			Summary: strings.TrimSpace(c.Summary),
		})
	}

	verdict, err := h.judge.Choose(ctx, judge.Request{
		ItemID:     item.ID,
		Text:       JudgeText(item),
		Candidates: candidates,
	})
	if err != nil {
		return judge.Verdict{}, err
	}
	if verdict.Index < 0 || verdict.Index >= len(categories) {
		return judge.Verdict{}, fmt.Errorf("%w: index=%d candidates=%d", judge.ErrIndexOutOfRange, verdict.Index, len(categories))
	}
	if verdict.Confidence < 0 || verdict.Confidence > 1 {
		return judge.Verdict{}, fmt.Errorf("%w: confidence=%f", judge.ErrMalformedVerdict, verdict.Confidence)
	}
	return verdict, nil
}

// MatchAll runs MatchItem over items in order. Item failures are counted and
// logged; only context cancellation stops the batch early.
func (h *Hybrid) MatchAll(ctx context.Context, items []Item, categories []Category) (BatchResult, error) {
	batch := BatchResult{
		Links:      make([]Link, 0, len(items)),
		Embeddings: make(map[string][]float32),
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		batch.Total++

		result, err := h.MatchItem(ctx, item, categories)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return batch, ctxErr
			}
			stage := StageEmbed
			var stageErr *StageError
			if errors.As(err, &stageErr) {
				stage = stageErr.Stage
			}
			batch.Failed++
			batch.Failures = append(batch.Failures, Failure{ItemID: item.ID, Stage: stage, Err: err})
			h.logger.Warn().
				Err(err).
				Str("item_id", item.ID).
				Str("stage", stage).
				Msg("item match failed; skipping")
			h.reportProgress(i+1, len(items))
			continue
		}

		if len(item.Embedding) == 0 && len(result.Embedding) > 0 {
			batch.Embeddings[item.ID] = result.Embedding
		}

		switch result.Method {
		case MethodEmbedding:
			batch.EmbeddingResolved++
		case MethodJudge:
			batch.JudgeResolved++
		case MethodJudgeFallback:
			batch.JudgeFallback++
		}
		batch.Links = append(batch.Links, Link{
			ItemID:     result.ItemID,
			CategoryID: result.CategoryID,
			Score:      clampScore(result.Score),
			Method:     result.Method,
		})
		h.reportProgress(i+1, len(items))
	}

	return batch, nil
}

func (h *Hybrid) reportProgress(done, total int) {
	if h.progress != nil {
		h.progress(done, total)
	}
}

// Link scores are stored within [0,1]; a negative cosine becomes 0.
func clampScore(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
