package vector

import "math"

const DefaultThresholdFraction = 0.5

// Distribution summarises a set of similarity scores.
type Distribution struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// PairwiseSimilarities returns the cosine of every unordered pair of
// non-empty vectors.
func PairwiseSimilarities(vectors [][]float32) []float64 {
	present := make([][]float32, 0, len(vectors))
	for _, v := range vectors {
		if len(v) > 0 {
			present = append(present, v)
		}
	}
	if len(present) < 2 {
		return nil
	}

	out := make([]float64, 0, len(present)*(len(present)-1)/2)
	for i := 0; i < len(present); i++ {
		for j := i + 1; j < len(present); j++ {
			out = append(out, Cosine(present[i], present[j]))
		}
	}
	return out
}

// Describe computes the population mean and standard deviation of values.
func Describe(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}

	d := Distribution{
		Count: len(values),
		Min:   values[0],
		Max:   values[0],
	}
	var sum float64
	for _, v := range values {
		sum += v
		d.Min = math.Min(d.Min, v)
		d.Max = math.Max(d.Max, v)
	}
	d.Mean = sum / float64(len(values))

	var variance float64
	for _, v := range values {
		diff := v - d.Mean
		variance += diff * diff
	}
	d.StdDev = math.Sqrt(variance / float64(len(values)))
	return d
}

// DeriveThreshold returns mean - fraction*stddev of the given similarities.
// ok is false when there is nothing to derive from.
func DeriveThreshold(similarities []float64, fraction float64) (float64, bool) {
	if len(similarities) == 0 {
		return 0, false
	}
	if fraction < 0 {
		fraction = DefaultThresholdFraction
	}
	d := Describe(similarities)
	return d.Mean - fraction*d.StdDev, true
}
