package analytics

import (
	"testing"
	"time"
)

func seriesFrom(values []float64, step time.Duration) []TrendPoint {
	base := time.Unix(1_700_000_000, 0)
	points := make([]TrendPoint, len(values))
	for i, v := range values {
		points[i] = TrendPoint{Timestamp: base.Add(time.Duration(i) * step), Value: v}
	}
	return points
}

func TestTrendDetectsIncreasing(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = float64(i) * 10
	}
	result := Trend(seriesFrom(values, time.Second))
	if result.Direction != DirectionIncreasing {
		t.Fatalf("expected increasing, got %v (slope=%v)", result.Direction, result.SlopePerSecond)
	}
	if result.RSquared < 0.99 {
		t.Fatalf("expected near-perfect fit, got r2=%v", result.RSquared)
	}
}

func TestTrendDetectsStableForFlatSeries(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 50
	}
	result := Trend(seriesFrom(values, time.Second))
	if result.Direction != DirectionStable {
		t.Fatalf("expected stable, got %v", result.Direction)
	}
}

func TestMovingAverageSmoothsSeries(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	avg := MovingAverage(values, 2)
	if avg[0] != 1 {
		t.Fatalf("expected first point to equal itself, got %v", avg[0])
	}
	if avg[4] != 4.5 {
		t.Fatalf("expected trailing avg of last two (4,5)=4.5, got %v", avg[4])
	}
}

func TestEMAFirstPointEqualsValue(t *testing.T) {
	values := []float64{10, 20, 30}
	ema := EMA(values, 0.5)
	if ema[0] != 10 {
		t.Fatalf("expected ema[0]=10, got %v", ema[0])
	}
	if ema[1] != 15 {
		t.Fatalf("expected ema[1]=15, got %v", ema[1])
	}
}
