package analytics

import (
	"math"
	"testing"
)

func TestSeasonalityDetectsPeriodicSignal(t *testing.T) {
	const period = 12
	values := make([]float64, 120)
	for i := range values {
		values[i] = math.Sin(2 * math.Pi * float64(i) / period)
	}
	lag := Seasonality(values, 2, 30)
	if lag != period {
		t.Fatalf("expected detected lag %d, got %d", period, lag)
	}
}

func TestSeasonalityReturnsZeroForNoise(t *testing.T) {
	values := []float64{1, -2, 3, 0, -1, -3, 2, 2, -1, 0, 1, -3, 1}
	lag := Seasonality(values, 1, 6)
	if lag != 0 {
		t.Fatalf("expected 0 for non-periodic noise, got %d", lag)
	}
}

func TestAutocorrelationOutOfRangeLagIsZero(t *testing.T) {
	if got := autocorrelation([]float64{1, 2, 3}, 10); got != 0 {
		t.Fatalf("expected 0 for out-of-range lag, got %v", got)
	}
}
