package vector

// Mean returns the element-wise centroid of vectors. Vectors whose length
// differs from the first non-empty one are ignored.
func Mean(vectors ...[]float32) []float32 {
	var dims int
	for _, v := range vectors {
		if len(v) > 0 {
			dims = len(v)
			break
		}
	}
	if dims == 0 {
		return nil
	}

	sum := make([]float64, dims)
	count := 0
	for _, v := range vectors {
		if len(v) != dims {
			continue
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
		count++
	}

	out := make([]float32, dims)
	for i := range sum {
		out[i] = float32(sum[i] / float64(count))
	}
	return out
}

// RunningMean folds v into a centroid that currently summarises n members.
// The result is a new slice; rep is not modified.
func RunningMean(rep []float32, n int, v []float32) []float32 {
	if n <= 0 || len(rep) == 0 {
		return Clone(v)
	}
	if len(rep) != len(v) {
		return Clone(rep)
	}

	out := make([]float32, len(rep))
	weight := 1 / float64(n+1)
	for i := range rep {
		r := float64(rep[i])
		out[i] = float32(r + (float64(v[i])-r)*weight)
	}
	return out
}

func Clone(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
