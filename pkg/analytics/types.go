// Package analytics implements trend/anomaly/forecast analysis and
// alerting over metric time series, feeding the optimizer's scaling
// decisions above it.
package analytics

import "time"

// Direction classifies a trend's slope relative to its series mean.
type Direction string

const (
	DirectionIncreasing Direction = "increasing"
	DirectionDecreasing Direction = "decreasing"
	DirectionStable     Direction = "stable"
)

// Severity classifies how far an anomalous point deviates from the mean.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// TrendPoint is one (timestamp, value) sample in a series.
type TrendPoint struct {
	Timestamp time.Time
	Value     float64
}

// TrendResult summarizes a linear regression fit over a series.
type TrendResult struct {
	SlopePerSecond float64
	Intercept      float64
	Mean           float64
	StdDev         float64
	RSquared       float64
	Direction      Direction
	Strength       float64 // 0..100, |r| scaled
}

// AnomalyResult describes one point flagged as anomalous.
type AnomalyResult struct {
	Timestamp time.Time
	Value     float64
	Expected  float64
	ZScore    float64
	Severity  Severity
}

// PredictedPoint is one point of a forecast, with a symmetric 95%
// confidence half-width around Value.
type PredictedPoint struct {
	Timestamp       time.Time
	Value           float64
	ConfidenceDelta float64
}
