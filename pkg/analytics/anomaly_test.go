package analytics

import (
	"math/rand"
	"testing"
	"time"
)

// TestAnomalyDetectionS7 mirrors the documented scenario: 100 points
// uniformly ~50±2 with one injected outlier of 80 at index 70, threshold 3.
func TestAnomalyDetectionS7(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	values := make([]float64, 100)
	for i := range values {
		values[i] = 50 + (rng.Float64()*4 - 2) // 48..52
	}
	values[70] = 80

	points := seriesFrom(values, time.Second)
	anomalies := Anomalies(points, 3)

	if len(anomalies) != 1 {
		t.Fatalf("expected exactly one anomaly, got %d: %+v", len(anomalies), anomalies)
	}
	got := anomalies[0]
	if !got.Timestamp.Equal(points[70].Timestamp) {
		t.Fatalf("expected anomaly at index 70's timestamp, got %v", got.Timestamp)
	}
	if got.Severity != SeverityModerate && got.Severity != SeveritySevere {
		t.Fatalf("expected severity >= moderate, got %v (z=%v)", got.Severity, got.ZScore)
	}
}

func TestAnomalyRequiresMinimumPoints(t *testing.T) {
	points := seriesFrom([]float64{1, 2, 3}, time.Second)
	if got := Anomalies(points, 3); got != nil {
		t.Fatalf("expected nil for series under MinAnomalyPoints, got %v", got)
	}
}

func TestAnomalyZeroStdDevReturnsNoAnomalies(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = 7
	}
	if got := Anomalies(seriesFrom(values, time.Second), 3); got != nil {
		t.Fatalf("expected no anomalies in a constant series, got %v", got)
	}
}

func TestSeverityBands(t *testing.T) {
	cases := []struct {
		z    float64
		want Severity
	}{
		{3.5, SeverityMinor},
		{4.5, SeverityModerate},
		{5.5, SeveritySevere},
	}
	for _, c := range cases {
		if got := severityFor(c.z); got != c.want {
			t.Fatalf("severityFor(%v) = %v, want %v", c.z, got, c.want)
		}
	}
}
