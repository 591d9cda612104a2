package analytics

import "math"

// MinAnomalyPoints is the minimum series length Anomalies requires; below
// it a z-score isn't statistically meaningful.
const MinAnomalyPoints = 10

// DefaultZThreshold is the z-score a point must exceed to count as
// anomalous when the caller passes threshold <= 0.
const DefaultZThreshold = 3.0

// Anomalies scans points for values whose z-score against the series mean
// and standard deviation exceeds threshold (default 3σ). Severity bands
// are >3σ minor, >4σ moderate, >5σ severe, regardless of the threshold
// used to admit the point.
func Anomalies(points []TrendPoint, threshold float64) []AnomalyResult {
	if len(points) < MinAnomalyPoints {
		return nil
	}
	if threshold <= 0 {
		threshold = DefaultZThreshold
	}

	mean, std := meanStd(points)
	if std == 0 {
		return nil
	}

	var out []AnomalyResult
	for _, p := range points {
		z := (p.Value - mean) / std
		if math.Abs(z) <= threshold {
			continue
		}
		out = append(out, AnomalyResult{
			Timestamp: p.Timestamp,
			Value:     p.Value,
			Expected:  mean,
			ZScore:    z,
			Severity:  severityFor(math.Abs(z)),
		})
	}
	return out
}

func severityFor(absZ float64) Severity {
	switch {
	case absZ > 5:
		return SeveritySevere
	case absZ > 4:
		return SeverityModerate
	default:
		return SeverityMinor
	}
}

func meanStd(points []TrendPoint) (mean, std float64) {
	n := float64(len(points))
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, p := range points {
		sum += p.Value
	}
	mean = sum / n

	var sumSq float64
	for _, p := range points {
		d := p.Value - mean
		sumSq += d * d
	}
	variance := sumSq / n
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}
