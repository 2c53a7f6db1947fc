package cluster

import (
	"fmt"
	"sort"
	"strings"

	"github.com/philo-kim/moniterdc-sub001/internal/keyword"
	"github.com/philo-kim/moniterdc-sub001/internal/vector"
)

type Strategy string

const (
	StrategyKeyword Strategy = "keyword"
	StrategyVector  Strategy = "vector"
)

const (
	DefaultMinSharedKeywords = 2
	// Used when there are too few vectors to derive a threshold from.
	DefaultVectorThreshold = 0.6
)

type Item struct {
	ID       string
	Keywords []string
	Vector   []float32
}

type Cluster struct {
	Members        []string
	Keywords       []string
	Representative []float32
}

func (c Cluster) Size() int {
	return len(c.Members)
}

type Options struct {
	Strategy          Strategy
	MinSharedKeywords int
	// Threshold <= 0 derives the vector threshold from the data.
	Threshold         float64
	ThresholdFraction float64
}

type Result struct {
	Strategy         Strategy
	Clusters         []Cluster
	Threshold        float64
	ThresholdDerived bool
	Skipped          []string
}

type Builder struct {
	opts Options
}

func ParseStrategy(raw string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", StrategyVector:
		return StrategyVector, nil
	case StrategyKeyword:
		return StrategyKeyword, nil
	default:
		return "", fmt.Errorf("unknown cluster strategy %q (want keyword or vector)", raw)
	}
}

func NewBuilder(opts Options) (*Builder, error) {
	strategy, err := ParseStrategy(string(opts.Strategy))
	if err != nil {
		return nil, err
	}
	opts.Strategy = strategy
	if opts.MinSharedKeywords <= 0 {
		opts.MinSharedKeywords = DefaultMinSharedKeywords
	}
	if opts.Threshold > 1 {
		return nil, fmt.Errorf("threshold must be <= 1")
	}
	if opts.ThresholdFraction <= 0 {
		opts.ThresholdFraction = vector.DefaultThresholdFraction
	}
	return &Builder{opts: opts}, nil
}

func (b *Builder) Strategy() Strategy {
	return b.opts.Strategy
}

// Build partitions items using the configured strategy. Items are consumed in
// the given order, which callers should keep stable across runs.
func (b *Builder) Build(items []Item) Result {
	switch b.opts.Strategy {
	case StrategyKeyword:
		return b.buildKeyword(items)
	default:
		return b.buildVector(items)
	}
}

func summarizeKeywords(members []Item) []string {
	counts := make(map[string]int)
	var order []string
	for _, m := range members {
		for _, k := range keyword.Unique(m.Keywords) {
			if _, ok := counts[k]; !ok {
				order = append(order, k)
			}
			counts[k]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	return order
}
