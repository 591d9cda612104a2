package analytics

import (
	"math"
	"time"
)

// z95 is the two-sided normal critical value for a 95% confidence band.
const z95 = 1.96

// Predictor wraps forecast operations over a single series so callers
// needn't re-pass points to every call.
type Predictor struct {
	Points []TrendPoint
}

// NewPredictor builds a Predictor over points.
func NewPredictor(points []TrendPoint) *Predictor {
	return &Predictor{Points: points}
}

// Predict forecasts horizon into n points; see the package-level Predict.
func (p *Predictor) Predict(horizon time.Duration, n int) []PredictedPoint {
	return Predict(p.Points, horizon, n)
}

// CapacityExhaustion projects when the series crosses ceiling; see the
// package-level CapacityExhaustion.
func (p *Predictor) CapacityExhaustion(ceiling float64) (time.Time, bool) {
	return CapacityExhaustion(p.Points, ceiling)
}

// Predict extrapolates the regression fit over points for horizon, split
// into n equally spaced points. Each point's ConfidenceDelta is the 95%
// band half-width from the residual standard error.
func Predict(points []TrendPoint, horizon time.Duration, n int) []PredictedPoint {
	if len(points) == 0 || n <= 0 {
		return nil
	}
	t0 := points[0].Timestamp
	trend := Trend(points)

	se := residualStdError(points, t0, trend)
	lastX := points[len(points)-1].Timestamp.Sub(t0).Seconds()
	step := horizon.Seconds() / float64(n)

	out := make([]PredictedPoint, 0, n)
	for i := 1; i <= n; i++ {
		x := lastX + step*float64(i)
		value := trend.SlopePerSecond*x + trend.Intercept
		ts := t0.Add(time.Duration(x * float64(time.Second)))
		out = append(out, PredictedPoint{
			Timestamp:       ts,
			Value:           value,
			ConfidenceDelta: z95 * se,
		})
	}
	return out
}

func residualStdError(points []TrendPoint, t0 time.Time, trend TrendResult) float64 {
	n := len(points)
	if n <= 2 {
		return 0
	}
	var ssRes float64
	for _, p := range points {
		x := p.Timestamp.Sub(t0).Seconds()
		fitted := trend.SlopePerSecond*x + trend.Intercept
		ssRes += (p.Value - fitted) * (p.Value - fitted)
	}
	return math.Sqrt(ssRes / float64(n-2))
}

// CapacityExhaustion extrapolates a positive-slope regression fit to find
// the time the series is projected to cross ceiling. Returns false if the
// slope is non-positive (never crosses), or the latest sample's timestamp
// if the series has already crossed it.
func CapacityExhaustion(points []TrendPoint, ceiling float64) (time.Time, bool) {
	if len(points) == 0 {
		return time.Time{}, false
	}
	last := points[len(points)-1]
	if last.Value >= ceiling {
		return last.Timestamp, true
	}

	trend := Trend(points)
	if trend.SlopePerSecond <= 0 {
		return time.Time{}, false
	}

	t0 := points[0].Timestamp
	xCross := (ceiling - trend.Intercept) / trend.SlopePerSecond
	return t0.Add(time.Duration(xCross * float64(time.Second))), true
}
