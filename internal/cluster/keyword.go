package cluster

import (
	"github.com/philo-kim/moniterdc-sub001/internal/keyword"
	"github.com/philo-kim/moniterdc-sub001/internal/vector"
)

// buildKeyword links any two items sharing at least MinSharedKeywords
// keywords and returns the connected components. The grouping is transitive
// and does not depend on item order beyond the order clusters are listed in.
func (b *Builder) buildKeyword(items []Item) Result {
	sets := make([]map[string]struct{}, len(items))
	for i, item := range items {
		sets[i] = keyword.Set(item.Keywords)
	}

	uf := newUnionFind(len(items))
	for i := 0; i < len(items); i++ {
		if len(sets[i]) < b.opts.MinSharedKeywords {
			continue
		}
		for j := i + 1; j < len(items); j++ {
			if keyword.SharedCount(sets[i], sets[j]) >= b.opts.MinSharedKeywords {
				uf.union(i, j)
			}
		}
	}

	var order []int
	groups := make(map[int][]Item)
	for i, item := range items {
		root := uf.find(i)
		if _, ok := groups[root]; !ok {
			order = append(order, root)
		}
		groups[root] = append(groups[root], item)
	}

	clusters := make([]Cluster, 0, len(order))
	for _, root := range order {
		members := groups[root]
		ids := make([]string, 0, len(members))
		vectors := make([][]float32, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.ID)
			vectors = append(vectors, m.Vector)
		}
		clusters = append(clusters, Cluster{
			Members:        ids,
			Keywords:       summarizeKeywords(members),
			Representative: vector.Mean(vectors...),
		})
	}

	return Result{
		Strategy: StrategyKeyword,
		Clusters: clusters,
	}
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

// union keeps the smaller index as root so component roots follow input order.
func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}
