package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineIdentityAndZero(t *testing.T) {
	t.Parallel()

	v := []float32{0.3, -1.2, 4, 0.01}
	assert.InDelta(t, 1.0, Cosine(v, v), 1e-9)
	assert.Equal(t, 0.0, Cosine(v, []float32{0, 0, 0, 0}))
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{0, 0}))
}

func TestCosineOrthogonalAndOpposite(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 2}, []float32{-1, -2}), 1e-9)
}

func TestCosineMismatchedLengths(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, Cosine([]float32{1, 2, 3}, []float32{1, 2}))
	assert.Equal(t, 0.0, Cosine(nil, nil))
}

func TestBestSkipsMissingAndKeepsFirstOnTie(t *testing.T) {
	t.Parallel()

	query := []float32{1, 0}
	candidates := [][]float32{
		nil,
		{2, 0},
		{5, 0},
		{0, 1},
	}
	idx, score := Best(query, candidates)
	assert.Equal(t, 1, idx)
	assert.InDelta(t, 1.0, score, 1e-9)

	idx, score = Best(query, [][]float32{nil, {}})
	assert.Equal(t, -1, idx)
	assert.Equal(t, 0.0, score)
}

func TestRunningMeanMatchesMean(t *testing.T) {
	t.Parallel()

	members := [][]float32{
		{1, 2, 3},
		{3, 2, 1},
		{2, 8, -4},
		{0, 0, 0},
	}

	var rep []float32
	for i, m := range members {
		rep = RunningMean(rep, i, m)
	}
	want := Mean(members...)
	require.Len(t, rep, 3)
	for i := range want {
		assert.InDelta(t, want[i], rep[i], 1e-5)
	}
	assert.InDelta(t, 1.5, want[0], 1e-6)
	assert.InDelta(t, 3.0, want[1], 1e-6)
	assert.InDelta(t, 0.0, want[2], 1e-6)
}

func TestRunningMeanDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	rep := []float32{1, 1}
	out := RunningMean(rep, 1, []float32{3, 3})
	assert.Equal(t, []float32{1, 1}, rep)
	assert.Equal(t, []float32{2, 2}, out)
}

func TestDeriveThreshold(t *testing.T) {
	t.Parallel()

	sims := []float64{0.2, 0.4, 0.6}
	mean := 0.4
	std := math.Sqrt((0.04 + 0 + 0.04) / 3)

	got, ok := DeriveThreshold(sims, 0.5)
	require.True(t, ok)
	assert.InDelta(t, mean-0.5*std, got, 1e-9)

	_, ok = DeriveThreshold(nil, 0.5)
	assert.False(t, ok)
}

func TestPairwiseSimilarities(t *testing.T) {
	t.Parallel()

	sims := PairwiseSimilarities([][]float32{{1, 0}, nil, {0, 1}, {1, 1}})
	require.Len(t, sims, 3)
	assert.InDelta(t, 0.0, sims[0], 1e-9)
	assert.InDelta(t, math.Sqrt2/2, sims[1], 1e-6)
	assert.InDelta(t, math.Sqrt2/2, sims[2], 1e-6)

	d := Describe(sims)
	assert.Equal(t, 3, d.Count)
	assert.InDelta(t, 0.0, d.Min, 1e-9)
}
