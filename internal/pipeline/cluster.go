package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/philo-kim/moniterdc-sub001/internal/cluster"
	"github.com/philo-kim/moniterdc-sub001/internal/db"
	"github.com/philo-kim/moniterdc-sub001/internal/vector"
)

const (
	clusterNameSuffix   = " 관련 논리들"
	clusterNameMaxRunes = 50
)

type ClusterOptions struct {
	Builder cluster.Options
	Limit   int
	DryRun  bool
	// Analyze reports the similarity distribution and cluster sizes without
	// writing anything.
	Analyze bool
}

type ClusterResult struct {
	Strategy         cluster.Strategy
	Entries          int
	Clusters         int
	Singletons       int
	Largest          int
	Skipped          int
	Threshold        float64
	ThresholdDerived bool
	Written          int
	DryRun           bool
	Distribution     *vector.Distribution
	Sizes            []int
}

// ClusterPending regroups every logic entry and replaces the stored clusters.
func (s *Service) ClusterPending(ctx context.Context, opts ClusterOptions) (ClusterResult, error) {
	dryRun := opts.DryRun || opts.Analyze
	result := ClusterResult{DryRun: dryRun}
	if err := s.ready(); err != nil {
		return result, err
	}

	builder, err := cluster.NewBuilder(opts.Builder)
	if err != nil {
		return result, err
	}
	result.Strategy = builder.Strategy()

	entries, err := s.store.ListLogicEntries(ctx, db.LogicFilter{
		RequireEmbedding: builder.Strategy() == cluster.StrategyVector,
		Limit:            opts.Limit,
	})
	if err != nil {
		return result, err
	}
	result.Entries = len(entries)
	if len(entries) == 0 {
		return result, nil
	}

	items := make([]cluster.Item, 0, len(entries))
	byID := make(map[string]db.LogicEntry, len(entries))
	for _, entry := range entries {
		byID[entry.ID] = entry
		items = append(items, cluster.Item{
			ID:       entry.ID,
			Keywords: entry.Keywords,
			Vector:   db.VectorSlice(entry.Embedding),
		})
	}

	built := builder.Build(items)
	result.Clusters = len(built.Clusters)
	result.Skipped = len(built.Skipped)
	result.Threshold = built.Threshold
	result.ThresholdDerived = built.ThresholdDerived
	result.Sizes = make([]int, 0, len(built.Clusters))
	for _, c := range built.Clusters {
		size := c.Size()
		result.Sizes = append(result.Sizes, size)
		result.Largest = max(result.Largest, size)
		if size == 1 {
			result.Singletons++
		}
	}

	if opts.Analyze {
		vectors := make([][]float32, 0, len(items))
		for _, item := range items {
			vectors = append(vectors, item.Vector)
		}
		distribution := vector.Describe(vector.PairwiseSimilarities(vectors))
		result.Distribution = &distribution
	}

	for _, id := range built.Skipped {
		s.logger.Warn().Str("item_id", id).Str("stage", "cluster").Msg("logic entry has no embedding; skipped")
	}

	if dryRun {
		return result, nil
	}

	inputs := make([]db.ClusterInput, 0, len(built.Clusters))
	for _, c := range built.Clusters {
		if len(c.Members) == 0 {
			continue
		}
		seed := byID[c.Members[0]]
		inputs = append(inputs, db.ClusterInput{
			Name:           ClusterName(seed.ContextIssue, seed.CoreArgument),
			ContextIssue:   seed.ContextIssue,
			Strategy:       string(built.Strategy),
			Keywords:       c.Keywords,
			Representative: c.Representative,
			MemberIDs:      c.Members,
		})
	}

	written, err := s.store.ReplaceClusters(ctx, inputs)
	if err != nil {
		return result, fmt.Errorf("replace clusters: %w", err)
	}
	result.Written = written
	return result, nil
}

// ClusterName labels a cluster after its first member: the context issue when
// present, otherwise the leading runes of the core argument.
func ClusterName(contextIssue *string, coreArgument string) string {
	if contextIssue != nil {
		if issue := strings.TrimSpace(*contextIssue); issue != "" {
			return issue + clusterNameSuffix
		}
	}
	runes := []rune(strings.TrimSpace(coreArgument))
	if len(runes) > clusterNameMaxRunes {
		runes = runes[:clusterNameMaxRunes]
	}
	return string(runes) + clusterNameSuffix
}
