package analytics

import (
	"testing"
	"time"
)

func TestPredictExtrapolatesLinearTrend(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(i)
	}
	points := seriesFrom(values, time.Second)

	forecast := Predict(points, 10*time.Second, 5)
	if len(forecast) != 5 {
		t.Fatalf("expected 5 forecast points, got %d", len(forecast))
	}
	if forecast[len(forecast)-1].Value <= points[len(points)-1].Value {
		t.Fatalf("expected forecast to continue increasing, got %+v", forecast)
	}
}

func TestCapacityExhaustionAlreadyCrossed(t *testing.T) {
	points := seriesFrom([]float64{10, 20, 30}, time.Second)
	ts, ok := CapacityExhaustion(points, 25)
	if !ok {
		t.Fatal("expected crossed=true when current value exceeds ceiling")
	}
	if !ts.Equal(points[len(points)-1].Timestamp) {
		t.Fatalf("expected latest timestamp, got %v", ts)
	}
}

func TestCapacityExhaustionNonPositiveSlopeNeverCrosses(t *testing.T) {
	points := seriesFrom([]float64{30, 20, 10}, time.Second)
	_, ok := CapacityExhaustion(points, 100)
	if ok {
		t.Fatal("expected no crossing for a decreasing series below ceiling")
	}
}

func TestCapacityExhaustionProjectsFutureCrossing(t *testing.T) {
	points := seriesFrom([]float64{0, 10, 20, 30}, time.Second)
	ts, ok := CapacityExhaustion(points, 100)
	if !ok {
		t.Fatal("expected a projected crossing for an increasing series")
	}
	if !ts.After(points[len(points)-1].Timestamp) {
		t.Fatalf("expected projected crossing after the last sample, got %v", ts)
	}
}

func TestPredictorWrapsPackageFunctions(t *testing.T) {
	points := seriesFrom([]float64{1, 2, 3, 4, 5}, time.Second)
	p := NewPredictor(points)
	if got := p.Predict(5*time.Second, 1); len(got) != 1 {
		t.Fatalf("expected 1 forecast point, got %d", len(got))
	}
	if _, ok := p.CapacityExhaustion(1000); !ok {
		t.Fatal("expected a projected crossing for a positive-slope series")
	}
}
