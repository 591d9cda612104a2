package optimizer

import (
	"math"
	"sync"
	"time"
)

// ScalingAction is the recommendation an Autoscaler decision carries.
type ScalingAction string

const (
	ScalingNone ScalingAction = "none"
	ScalingUp   ScalingAction = "scale-up"
	ScalingDown ScalingAction = "scale-down"
)

// ScalingDecision is one evaluation of the autoscaler's policy.
type ScalingDecision struct {
	Action      ScalingAction
	Confidence  float64 // 0..1
	Recommended int
	Reason      string
	At          time.Time
}

// AutoscalerPolicy configures thresholds and the cooldown window.
type AutoscalerPolicy struct {
	CPUUpThreshold   float64
	MemUpThreshold   float64
	CPUDownThreshold float64
	MemDownThreshold float64
	Cooldown         time.Duration
	ScaleFactor      float64 // e.g. 1.5
}

// DefaultAutoscalerPolicy returns reasonable defaults.
func DefaultAutoscalerPolicy() AutoscalerPolicy {
	return AutoscalerPolicy{
		CPUUpThreshold:   80,
		MemUpThreshold:   80,
		CPUDownThreshold: 30,
		MemDownThreshold: 30,
		Cooldown:         60 * time.Second,
		ScaleFactor:      1.5,
	}
}

// Autoscaler smooths raw cpu/mem readings with an EMA (alpha=0.3) and
// issues scaling decisions outside a configurable cooldown window.
type Autoscaler struct {
	mu     sync.Mutex
	policy AutoscalerPolicy
	now    func() time.Time

	smoothedCPU float64
	smoothedMem float64
	hasSmoothed bool

	lastDecisionAt time.Time
	hasDecided     bool
	history        []ScalingDecision
	historyCap     int
}

const emaAlpha = 0.3

// NewAutoscaler builds an Autoscaler with the given policy.
func NewAutoscaler(policy AutoscalerPolicy) *Autoscaler {
	return &Autoscaler{
		policy:     policy,
		now:        time.Now,
		historyCap: 100,
	}
}

// Evaluate smooths cpu/mem into the autoscaler's running EMA and decides
// a scaling action for a pool currently sized at currentResources.
func (a *Autoscaler) Evaluate(cpu, mem float64, currentResources int) ScalingDecision {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.hasSmoothed {
		a.smoothedCPU = cpu
		a.smoothedMem = mem
		a.hasSmoothed = true
	} else {
		a.smoothedCPU = emaAlpha*cpu + (1-emaAlpha)*a.smoothedCPU
		a.smoothedMem = emaAlpha*mem + (1-emaAlpha)*a.smoothedMem
	}

	now := a.now()
	if a.hasDecided && now.Sub(a.lastDecisionAt) < a.policy.Cooldown {
		decision := ScalingDecision{
			Action: ScalingNone,
			Reason: "In cooldown period",
			At:     now,
		}
		a.record(decision)
		return decision
	}

	p := a.policy
	var decision ScalingDecision
	switch {
	case a.smoothedCPU > p.CPUUpThreshold || a.smoothedMem > p.MemUpThreshold:
		excess := math.Max(a.smoothedCPU-p.CPUUpThreshold, a.smoothedMem-p.MemUpThreshold)
		decision = ScalingDecision{
			Action:      ScalingUp,
			Confidence:  clamp(excess/20, 0, 1),
			Recommended: int(math.Ceil(float64(currentResources) * p.ScaleFactor)),
			Reason:      "smoothed load exceeds scale-up threshold",
			At:          now,
		}
	case a.smoothedCPU < p.CPUDownThreshold && a.smoothedMem < p.MemDownThreshold:
		deficit := math.Max(p.CPUDownThreshold-a.smoothedCPU, p.MemDownThreshold-a.smoothedMem)
		recommended := int(math.Floor(float64(currentResources) / p.ScaleFactor))
		if recommended < 1 {
			recommended = 1
		}
		decision = ScalingDecision{
			Action:      ScalingDown,
			Confidence:  clamp(deficit/20, 0, 1),
			Recommended: recommended,
			Reason:      "smoothed load below scale-down thresholds",
			At:          now,
		}
	default:
		decision = ScalingDecision{
			Action:      ScalingNone,
			Recommended: currentResources,
			Reason:      "within steady-state thresholds",
			At:          now,
		}
	}

	if decision.Action != ScalingNone {
		a.lastDecisionAt = now
		a.hasDecided = true
	}
	a.record(decision)
	return decision
}

func (a *Autoscaler) record(d ScalingDecision) {
	a.history = append(a.history, d)
	if over := len(a.history) - a.historyCap; over > 0 {
		a.history = a.history[over:]
	}
}

// History returns a copy of the bounded decision history, oldest first.
func (a *Autoscaler) History() []ScalingDecision {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ScalingDecision, len(a.history))
	copy(out, a.history)
	return out
}
