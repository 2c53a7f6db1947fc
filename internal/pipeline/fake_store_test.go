package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/philo-kim/moniterdc-sub001/internal/db"
)

type fakeStore struct {
	perceptions []db.Perception
	worldviews  []db.Worldview
	logic       []db.LogicEntry

	links         []db.LinkInput
	replaceCalls  int
	refreshCalls  int
	clusters      []db.ClusterInput
	embeddingsPut map[string][]float32
	failReplace   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{embeddingsPut: make(map[string][]float32)}
}

func (f *fakeStore) ListPerceptions(_ context.Context, filter db.PerceptionFilter) ([]db.Perception, error) {
	var out []db.Perception
	for _, p := range f.perceptions {
		if filter.RequireMechanisms && len(p.Mechanisms) == 0 {
			continue
		}
		if filter.MissingEmbedding && p.Embedding != nil {
			continue
		}
		out = append(out, p)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) UpdatePerceptionEmbedding(_ context.Context, id string, values []float32) error {
	for i := range f.perceptions {
		if f.perceptions[i].ID == id {
			f.perceptions[i].Embedding = db.NewVector(values)
			f.embeddingsPut[id] = values
			return nil
		}
	}
	return fmt.Errorf("perception %s not found", id)
}

func (f *fakeStore) ListWorldviews(_ context.Context, filter db.WorldviewFilter) ([]db.Worldview, error) {
	var out []db.Worldview
	for _, w := range f.worldviews {
		if filter.Version > 0 && w.Version != filter.Version {
			continue
		}
		if !filter.IncludeArchived && w.Archived {
			continue
		}
		if len(filter.Levels) > 0 && !slices.Contains(filter.Levels, w.Level) {
			continue
		}
		if filter.HierarchicalOnly && !w.IsHierarchical() {
			continue
		}
		if filter.MissingEmbedding && w.Embedding != nil {
			continue
		}
		out = append(out, w)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateWorldviewEmbedding(_ context.Context, id string, values []float32) error {
	for i := range f.worldviews {
		if f.worldviews[i].ID == id {
			f.worldviews[i].Embedding = db.NewVector(values)
			f.embeddingsPut[id] = values
			return nil
		}
	}
	return fmt.Errorf("worldview %s not found", id)
}

func (f *fakeStore) ReplaceLinks(_ context.Context, links []db.LinkInput) (int64, error) {
	if f.failReplace {
		return 0, errors.New("connection reset")
	}
	f.replaceCalls++
	f.links = append([]db.LinkInput(nil), links...)
	return int64(len(links)), nil
}

func (f *fakeStore) RefreshWorldviewStats(context.Context) (int64, error) {
	f.refreshCalls++
	return int64(len(f.worldviews)), nil
}

func (f *fakeStore) ListLogicEntries(_ context.Context, filter db.LogicFilter) ([]db.LogicEntry, error) {
	var out []db.LogicEntry
	for _, e := range f.logic {
		if filter.RequireEmbedding && e.Embedding == nil {
			continue
		}
		if filter.MissingEmbedding && e.Embedding != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) UpdateLogicEmbedding(_ context.Context, id string, values []float32) error {
	for i := range f.logic {
		if f.logic[i].ID == id {
			f.logic[i].Embedding = db.NewVector(values)
			f.embeddingsPut[id] = values
			return nil
		}
	}
	return fmt.Errorf("logic %s not found", id)
}

func (f *fakeStore) ReplaceClusters(_ context.Context, clusters []db.ClusterInput) (int, error) {
	f.clusters = append([]db.ClusterInput(nil), clusters...)
	return len(clusters), nil
}

// fakeEmbedder maps known texts to vectors and everything else to {1, 0}.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if v, ok := f.vectors[text]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, []float32{1, 0})
	}
	return out, nil
}

func strPtr(s string) *string { return &s }
