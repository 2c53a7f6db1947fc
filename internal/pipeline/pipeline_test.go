package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philo-kim/moniterdc-sub001/internal/cluster"
	"github.com/philo-kim/moniterdc-sub001/internal/db"
	"github.com/philo-kim/moniterdc-sub001/internal/matcher"
)

func TestParseTargets(t *testing.T) {
	t.Parallel()

	got, err := ParseTargets("")
	require.NoError(t, err)
	assert.Equal(t, []Target{TargetWorldviews}, got)

	got, err = ParseTargets("logic, perceptions,logic")
	require.NoError(t, err)
	assert.Equal(t, []Target{TargetLogic, TargetPerceptions}, got)

	_, err = ParseTargets("articles")
	assert.Error(t, err)
}

func TestEmbedPendingStoresMissingVectors(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.worldviews = []db.Worldview{
		{ID: "w1", Title: "정부 > 감시", Frame: db.JSON(`{"narrative":{"summary":"요약"}}`)},
		{ID: "w2", Title: "done", Embedding: db.NewVector([]float32{0, 1})},
	}
	store.logic = []db.LogicEntry{
		{ID: "l1", CoreArgument: "논리"},
		{ID: "l2", CoreArgument: "  "},
	}
	embedder := &fakeEmbedder{}
	svc := NewService(store, embedder, nil, zerolog.Nop())

	var progress []int
	res, err := svc.EmbedPending(context.Background(), EmbedOptions{
		Targets:  []Target{TargetWorldviews, TargetLogic},
		Progress: func(done, _ int) { progress = append(progress, done) },
	})
	require.NoError(t, err)
	assert.Equal(t, EmbedResult{Processed: 3, Embedded: 2, Skipped: 1}, res)
	assert.Contains(t, store.embeddingsPut, "w1")
	assert.Contains(t, store.embeddingsPut, "l1")
	assert.NotContains(t, store.embeddingsPut, "w2")
	assert.NotEmpty(t, progress)
}

func TestEmbedPendingCountsProviderFailures(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.worldviews = []db.Worldview{{ID: "w1", Title: "a"}, {ID: "w2", Title: "b"}}
	svc := NewService(store, &fakeEmbedder{err: errors.New("rate limited")}, nil, zerolog.Nop())

	res, err := svc.EmbedPending(context.Background(), EmbedOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Failed)
	assert.Zero(t, res.Embedded)
}

func matchFixture() *fakeStore {
	store := newFakeStore()
	store.worldviews = []db.Worldview{
		{ID: "w1", Title: "정부 > 감시", Embedding: db.NewVector([]float32{1, 0})},
		{ID: "w2", Title: "언론 > 왜곡", Embedding: db.NewVector([]float32{0, 1})},
		{ID: "flat", Title: "평면 세계관", Embedding: db.NewVector([]float32{0.7, 0.7})},
	}
	store.perceptions = []db.Perception{
		{ID: "p1", DeepBeliefs: db.StringList{"정부가 감시한다"}},
		{ID: "p2", DeepBeliefs: db.StringList{"언론이 왜곡한다"}, Embedding: db.NewVector([]float32{0.1, 1})},
		{ID: "p3"},
	}
	return store
}

func TestMatchPendingReplacesLinks(t *testing.T) {
	t.Parallel()

	store := matchFixture()
	svc := NewService(store, &fakeEmbedder{}, nil, zerolog.Nop())

	res, err := svc.MatchPending(context.Background(), MatchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Perceptions)
	assert.Equal(t, 2, res.Worldviews)
	assert.Equal(t, 2, res.EmbeddingResolved)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, int64(2), res.LinksWritten)
	assert.Equal(t, 1, res.EmbeddingsStored)
	assert.Equal(t, matcher.DefaultSimilarityThreshold, res.Threshold)

	require.Len(t, store.links, 2)
	assert.Equal(t, db.LinkInput{PerceptionID: "p1", WorldviewID: "w1", Score: 1, Method: "embedding"}, store.links[0])
	assert.Equal(t, "w2", store.links[1].WorldviewID)
	assert.Equal(t, 1, store.replaceCalls)
	assert.Equal(t, 1, store.refreshCalls)
	assert.Contains(t, store.embeddingsPut, "p1")
}

func TestMatchPendingWarnsOnUnreadableFrame(t *testing.T) {
	t.Parallel()

	store := matchFixture()
	store.worldviews[0].Frame = db.JSON(`{not json`)
	var logs bytes.Buffer
	svc := NewService(store, &fakeEmbedder{}, nil, zerolog.New(&logs))

	res, err := svc.MatchPending(context.Background(), MatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.LinksWritten)
	assert.Contains(t, logs.String(), `"worldview_id":"w1"`)
	assert.Contains(t, logs.String(), `"level":"warn"`)
}

func TestMatchPendingDryRunWritesNothing(t *testing.T) {
	t.Parallel()

	store := matchFixture()
	store.worldviews[0].Embedding = nil
	svc := NewService(store, &fakeEmbedder{}, nil, zerolog.Nop())

	res, err := svc.MatchPending(context.Background(), MatchOptions{DryRun: true, AllWorldviews: true})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, 3, res.Worldviews)
	assert.Zero(t, store.replaceCalls)
	assert.Zero(t, store.refreshCalls)
	assert.Empty(t, store.embeddingsPut)
}

func TestMatchPendingPersistenceFailureIsFatal(t *testing.T) {
	t.Parallel()

	store := matchFixture()
	store.failReplace = true
	svc := NewService(store, &fakeEmbedder{}, nil, zerolog.Nop())

	_, err := svc.MatchPending(context.Background(), MatchOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replace links")
	assert.Zero(t, store.refreshCalls)
}

func TestMatchPendingWithoutWorldviews(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := NewService(store, &fakeEmbedder{}, nil, zerolog.Nop())
	_, err := svc.MatchPending(context.Background(), MatchOptions{})
	assert.ErrorIs(t, err, ErrNoWorldviews)
}

func TestHierarchyPendingScoresChildren(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.worldviews = []db.Worldview{
		{ID: "parent", Title: "민주당 사찰", Level: 1, Version: 2},
		{ID: "child", Title: "민주당 > 통신 사찰", Level: 2, Version: 2, ParentWorldviewID: strPtr("parent"),
			Frame: db.JSON(`{"subject":"민주당","action":"사찰한다","object":"국민"}`)},
		{ID: "other", Title: "언론 > 왜곡", Level: 2, Version: 2, ParentWorldviewID: strPtr("parent"),
			Frame: db.JSON(`{"subject":"언론","action":"왜곡한다"}`)},
		{ID: "old", Title: "old", Level: 2, Version: 1, ParentWorldviewID: strPtr("parent")},
	}
	store.perceptions = []db.Perception{
		{ID: "p1", Mechanisms: db.StringList{"surveillance"}, Actor: db.JSON(`{"subject":"민주당","methods":["사찰"]}`)},
		{ID: "p2", Mechanisms: db.StringList{"x"}, Actor: db.JSON(`{"subject":"기업","methods":["로비"]}`)},
		{ID: "p3", Actor: db.JSON(`{"subject":"민주당","methods":["사찰"]}`)},
	}
	svc := NewService(store, nil, nil, zerolog.Nop())

	res, err := svc.HierarchyPending(context.Background(), HierarchyOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Perceptions)
	assert.Equal(t, 1, res.Parents)
	assert.Equal(t, 2, res.Children)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, 1, res.Unmatched)
	require.Len(t, store.links, 1)
	assert.Equal(t, "child", store.links[0].WorldviewID)
	assert.InDelta(t, 0.93, store.links[0].Score, 1e-9)
	assert.Equal(t, MethodHierarchy, store.links[0].Method)

	require.Len(t, res.Breakdown, 1)
	assert.Equal(t, 1, res.Breakdown[0].Links)
	assert.Equal(t, 1, res.Breakdown[0].Children[0].Links)
	assert.Zero(t, res.Breakdown[0].Children[1].Links)
	assert.InDelta(t, 0.5, res.LinksPerPerception(), 1e-9)
}

func TestHierarchyPendingNeedsBothLevels(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.worldviews = []db.Worldview{{ID: "parent", Title: "p", Level: 1, Version: 2}}
	svc := NewService(store, nil, nil, zerolog.Nop())

	_, err := svc.HierarchyPending(context.Background(), HierarchyOptions{})
	assert.ErrorIs(t, err, ErrNoWorldviews)
}

func TestClusterPendingVectorPersistsClusters(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.logic = []db.LogicEntry{
		{ID: "a", CoreArgument: "첫 논리", ContextIssue: strPtr("통신 사찰"), Embedding: db.NewVector([]float32{1, 0})},
		{ID: "b", CoreArgument: "둘", Embedding: db.NewVector([]float32{0.99, 0.1})},
		{ID: "c", CoreArgument: "완전히 다른 논리", Embedding: db.NewVector([]float32{0, 1})},
		{ID: "d", CoreArgument: "no vector"},
	}
	svc := NewService(store, nil, nil, zerolog.Nop())

	res, err := svc.ClusterPending(context.Background(), ClusterOptions{
		Builder: cluster.Options{Strategy: cluster.StrategyVector, Threshold: 0.6},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Entries)
	assert.Equal(t, 2, res.Clusters)
	assert.Equal(t, 1, res.Singletons)
	assert.Equal(t, 2, res.Largest)
	assert.Equal(t, 2, res.Written)

	require.Len(t, store.clusters, 2)
	assert.Equal(t, "통신 사찰 관련 논리들", store.clusters[0].Name)
	assert.Equal(t, []string{"a", "b"}, store.clusters[0].MemberIDs)
	assert.Equal(t, "vector", store.clusters[0].Strategy)
	assert.Equal(t, "완전히 다른 논리 관련 논리들", store.clusters[1].Name)
}

func TestClusterPendingAnalyzeDoesNotWrite(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.logic = []db.LogicEntry{
		{ID: "a", Keywords: db.StringList{"사찰", "통신", "민주당"}},
		{ID: "b", Keywords: db.StringList{"사찰", "통신"}},
		{ID: "c", Keywords: db.StringList{"경제"}},
	}
	svc := NewService(store, nil, nil, zerolog.Nop())

	res, err := svc.ClusterPending(context.Background(), ClusterOptions{
		Builder: cluster.Options{Strategy: cluster.StrategyKeyword},
		Analyze: true,
	})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, []int{2, 1}, res.Sizes)
	require.NotNil(t, res.Distribution)
	assert.Zero(t, res.Distribution.Count)
	assert.Empty(t, store.clusters)
}

func TestClusterName(t *testing.T) {
	t.Parallel()

	long := "가나다라마바사아자차카타파하가나다라마바사아자차카타파하가나다라마바사아자차카타파하가나다라마바사아자차카타파하"
	name := ClusterName(nil, long)
	assert.Equal(t, 50+len([]rune(clusterNameSuffix)), len([]rune(name)))

	assert.Equal(t, "이슈 관련 논리들", ClusterName(strPtr(" 이슈 "), "ignored"))
	assert.Equal(t, "짧음 관련 논리들", ClusterName(strPtr(""), "짧음"))
}
