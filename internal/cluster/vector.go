package cluster

import (
	"github.com/philo-kim/moniterdc-sub001/internal/vector"
)

type vectorCluster struct {
	members []Item
	rep     []float32
}

// buildVector is a greedy single pass: each item joins the cluster whose
// representative is most similar, provided the similarity exceeds the
// threshold, and that representative becomes the running mean of its members.
// Otherwise the item seeds a new cluster. The outcome depends on item order.
func (b *Builder) buildVector(items []Item) Result {
	result := Result{Strategy: StrategyVector}

	withVectors := make([]Item, 0, len(items))
	for _, item := range items {
		if len(item.Vector) == 0 {
			result.Skipped = append(result.Skipped, item.ID)
			continue
		}
		withVectors = append(withVectors, item)
	}

	result.Threshold, result.ThresholdDerived = b.vectorThreshold(withVectors)

	var clusters []*vectorCluster
	for _, item := range withVectors {
		bestIndex := -1
		bestScore := result.Threshold
		for i, c := range clusters {
			score := vector.Cosine(item.Vector, c.rep)
			if score > bestScore {
				bestIndex = i
				bestScore = score
			}
		}

		if bestIndex < 0 {
			clusters = append(clusters, &vectorCluster{
				members: []Item{item},
				rep:     vector.Clone(item.Vector),
			})
			continue
		}

		c := clusters[bestIndex]
		c.rep = vector.RunningMean(c.rep, len(c.members), item.Vector)
		c.members = append(c.members, item)
	}

	result.Clusters = make([]Cluster, 0, len(clusters))
	for _, c := range clusters {
		ids := make([]string, 0, len(c.members))
		for _, m := range c.members {
			ids = append(ids, m.ID)
		}
		result.Clusters = append(result.Clusters, Cluster{
			Members:        ids,
			Keywords:       summarizeKeywords(c.members),
			Representative: c.rep,
		})
	}
	return result
}

func (b *Builder) vectorThreshold(items []Item) (float64, bool) {
	if b.opts.Threshold > 0 {
		return b.opts.Threshold, false
	}

	vectors := make([][]float32, 0, len(items))
	for _, item := range items {
		vectors = append(vectors, item.Vector)
	}
	if threshold, ok := vector.DeriveThreshold(vector.PairwiseSimilarities(vectors), b.opts.ThresholdFraction); ok {
		return threshold, true
	}
	return DefaultVectorThreshold, false
}
