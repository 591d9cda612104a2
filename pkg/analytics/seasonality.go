package analytics

import "math"

// Seasonality searches lags minLag..maxLag (inclusive) for the one with the
// highest autocorrelation, returning it if that correlation exceeds 0.5,
// else 0 (no seasonality detected). Lags whose correlations tie within
// rounding noise resolve to the smallest lag, so a periodic signal reports
// its fundamental period rather than a multiple of it.
func Seasonality(values []float64, minLag, maxLag int) int {
	const tieEpsilon = 1e-9
	if minLag < 1 {
		minLag = 1
	}
	n := len(values)
	if maxLag >= n {
		maxLag = n - 1
	}
	if minLag > maxLag {
		return 0
	}

	bestLag := 0
	bestCorr := 0.5 // threshold: must strictly exceed this to count
	for lag := minLag; lag <= maxLag; lag++ {
		corr := autocorrelation(values, lag)
		if corr > bestCorr+tieEpsilon {
			bestCorr = corr
			bestLag = lag
		}
	}
	return bestLag
}

func autocorrelation(values []float64, lag int) float64 {
	n := len(values)
	if lag <= 0 || lag >= n {
		return 0
	}

	mean, std := meanStdFloats(values)
	if std == 0 {
		return 0
	}

	var sum float64
	count := n - lag
	for i := 0; i < count; i++ {
		sum += (values[i] - mean) * (values[i+lag] - mean)
	}
	return (sum / float64(count)) / (std * std)
}

func meanStdFloats(values []float64) (mean, std float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / n

	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	variance := sumSq / n
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}
