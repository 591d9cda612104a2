package analytics

import "math"

// Trend fits an ordinary least-squares line to points, using seconds since
// the first point's timestamp as the x axis. direction is "stable" when the
// slope's contribution over one minute is under 1% of the series mean —
// matching the scale-invariant "noise floor" every series has regardless of
// its units.
func Trend(points []TrendPoint) TrendResult {
	if len(points) == 0 {
		return TrendResult{Direction: DirectionStable}
	}
	n := float64(len(points))
	t0 := points[0].Timestamp

	var sumX, sumY, sumXY, sumXX, sumY2 float64
	for _, p := range points {
		x := p.Timestamp.Sub(t0).Seconds()
		y := p.Value
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
		sumY2 += y * y
	}

	mean := sumY / n

	var slope, intercept float64
	denom := n*sumXX - sumX*sumX
	if denom != 0 {
		slope = (n*sumXY - sumX*sumY) / denom
		intercept = (sumY - slope*sumX) / n
	} else {
		intercept = mean
	}

	var ssTot, ssRes float64
	for _, p := range points {
		x := p.Timestamp.Sub(t0).Seconds()
		fitted := slope*x + intercept
		ssRes += (p.Value - fitted) * (p.Value - fitted)
		ssTot += (p.Value - mean) * (p.Value - mean)
	}

	variance := sumY2/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	std := math.Sqrt(variance)

	var r2 float64
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}

	dir := DirectionStable
	if mean != 0 && math.Abs(slope*60) >= 0.01*math.Abs(mean) {
		if slope > 0 {
			dir = DirectionIncreasing
		} else {
			dir = DirectionDecreasing
		}
	} else if mean == 0 && slope != 0 {
		if slope > 0 {
			dir = DirectionIncreasing
		} else {
			dir = DirectionDecreasing
		}
	}

	strength := math.Sqrt(math.Max(0, r2)) * 100
	if strength > 100 {
		strength = 100
	}

	return TrendResult{
		SlopePerSecond: slope,
		Intercept:      intercept,
		Mean:           mean,
		StdDev:         std,
		RSquared:       r2,
		Direction:      dir,
		Strength:       strength,
	}
}

// MovingAverage returns the simple moving average over a trailing window of
// size w; entries before the window fills use as many points as available.
func MovingAverage(values []float64, w int) []float64 {
	if w <= 0 {
		w = 1
	}
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		lo := i - w + 1
		if lo <= 0 {
			lo = 0
		} else {
			sum -= values[lo-1]
		}
		out[i] = sum / float64(i-lo+1)
	}
	return out
}

// EMA returns the exponential moving average with smoothing factor alpha
// in (0, 1].
func EMA(values []float64, alpha float64) []float64 {
	if alpha <= 0 {
		alpha = 0.01
	}
	if alpha > 1 {
		alpha = 1
	}
	out := make([]float64, len(values))
	for i, v := range values {
		if i == 0 {
			out[i] = v
			continue
		}
		out[i] = alpha*v + (1-alpha)*out[i-1]
	}
	return out
}
