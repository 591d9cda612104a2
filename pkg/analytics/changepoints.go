package analytics

import "math"

// ChangePoints runs a two-sided CUSUM over the series' first differences
// and returns the indices (into points, 1-based since a difference has no
// index 0) where the cumulative sum crosses threshold
// (3 - 2*sensitivity) * sigma. sensitivity is expected in [0, 1]; higher
// sensitivity lowers the threshold and so flags more change points.
func ChangePoints(points []TrendPoint, sensitivity float64) []int {
	if len(points) < 2 {
		return nil
	}

	diffs := make([]float64, len(points)-1)
	for i := 1; i < len(points); i++ {
		diffs[i-1] = points[i].Value - points[i-1].Value
	}

	_, sigma := meanStdFloats(diffs)
	if sigma == 0 {
		return nil
	}

	threshold := (3 - 2*sensitivity) * sigma
	if threshold < 0 {
		threshold = 0
	}

	var out []int
	var cusumPos, cusumNeg float64
	mean, _ := meanStdFloats(diffs)
	for i, d := range diffs {
		dev := d - mean
		cusumPos = math.Max(0, cusumPos+dev)
		cusumNeg = math.Min(0, cusumNeg+dev)

		if cusumPos > threshold || -cusumNeg > threshold {
			out = append(out, i+1) // +1: diffs[i] is the jump into points[i+1]
			cusumPos = 0
			cusumNeg = 0
		}
	}
	return out
}
