package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/philo-kim/moniterdc-sub001/internal/db"
	"github.com/philo-kim/moniterdc-sub001/internal/judge"
)

var (
	ErrNoWorldviews  = errors.New("no worldviews to match against")
	ErrNoPerceptions = errors.New("no perceptions to process")
)

// Store is the persistence surface the batch runs need. *db.Pool implements it.
type Store interface {
	ListPerceptions(ctx context.Context, filter db.PerceptionFilter) ([]db.Perception, error)
	UpdatePerceptionEmbedding(ctx context.Context, id string, values []float32) error
	ListWorldviews(ctx context.Context, filter db.WorldviewFilter) ([]db.Worldview, error)
	UpdateWorldviewEmbedding(ctx context.Context, id string, values []float32) error
	ReplaceLinks(ctx context.Context, links []db.LinkInput) (int64, error)
	RefreshWorldviewStats(ctx context.Context) (int64, error)
	ListLogicEntries(ctx context.Context, filter db.LogicFilter) ([]db.LogicEntry, error)
	UpdateLogicEmbedding(ctx context.Context, id string, values []float32) error
	ReplaceClusters(ctx context.Context, clusters []db.ClusterInput) (int, error)
}

var _ Store = (*db.Pool)(nil)

// Embedder is the subset of an embedding provider the pipeline needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Service struct {
	store    Store
	embedder Embedder
	judge    judge.Judge
	logger   zerolog.Logger
}

// NewService wires the batch runs. embedder may be nil for runs that only
// read stored vectors; j may be nil to disable the judge.
func NewService(store Store, embedder Embedder, j judge.Judge, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		embedder: embedder,
		judge:    j,
		logger:   logger,
	}
}

func (s *Service) ready() error {
	if s == nil || s.store == nil {
		return fmt.Errorf("pipeline service is not initialized")
	}
	return nil
}

func (s *Service) requireEmbedder() error {
	if s.embedder == nil {
		return fmt.Errorf("pipeline service has no embedding provider")
	}
	return nil
}

// Progress receives done/total after every processed item.
type Progress func(done, total int)

func (p Progress) report(done, total int) {
	if p != nil {
		p(done, total)
	}
}
