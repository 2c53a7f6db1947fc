package vector

import "math"

// Cosine returns the cosine similarity of a and b in [-1, 1].
// Zero-norm, empty, or length-mismatched inputs yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	switch {
	case sim > 1:
		return 1
	case sim < -1:
		return -1
	default:
		return sim
	}
}

// Best returns the index and similarity of the candidate closest to query.
// Candidates without a vector are skipped; ties keep the earliest index.
// The returned index is -1 when no candidate has a vector.
func Best(query []float32, candidates [][]float32) (int, float64) {
	bestIndex := -1
	bestScore := math.Inf(-1)
	for i, candidate := range candidates {
		if len(candidate) == 0 {
			continue
		}
		score := Cosine(query, candidate)
		if score > bestScore {
			bestIndex = i
			bestScore = score
		}
	}
	if bestIndex < 0 {
		return -1, 0
	}
	return bestIndex, bestScore
}
