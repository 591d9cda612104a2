package reliability

import (
	"hash/fnv"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Strategy selects which LoadBalancer algorithm picks among healthy
// instances.
type Strategy string

const (
	StrategyRoundRobin           Strategy = "round-robin"
	StrategyLeastConnections     Strategy = "least-connections"
	StrategyRandom               Strategy = "random"
	StrategyWeightedResponseTime Strategy = "weighted-response-time"
	StrategyIPHash               Strategy = "ip-hash"
)

// Instance is one backend the load balancer can route to.
type Instance struct {
	ID               uuid.UUID
	Address          string
	Healthy          bool
	Weight           int
	Connections      int64
	MeanResponseTime float64 // seconds, lower is better
}

// NewInstance builds a healthy Instance with a fresh id.
func NewInstance(address string, weight int) Instance {
	return Instance{ID: uuid.New(), Address: address, Healthy: true, Weight: weight}
}

// LoadBalancer selects among a registered set of instances using a
// configurable Strategy, always filtering out unhealthy instances first.
type LoadBalancer struct {
	mu        sync.RWMutex
	strategy  Strategy
	instances []Instance

	counter uint64 // round-robin cursor
	rng     *rand.Rand
}

// NewLoadBalancer builds a LoadBalancer over instances using strategy.
func NewLoadBalancer(strategy Strategy, instances []Instance) *LoadBalancer {
	cp := make([]Instance, len(instances))
	copy(cp, instances)
	return &LoadBalancer{
		strategy:  strategy,
		instances: cp,
		rng:       rand.New(rand.NewSource(1)),
	}
}

// SetInstances replaces the registered instance set.
func (lb *LoadBalancer) SetInstances(instances []Instance) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	cp := make([]Instance, len(instances))
	copy(cp, instances)
	lb.instances = cp
}

// MarkHealth flips an instance's health by id.
func (lb *LoadBalancer) MarkHealth(id uuid.UUID, healthy bool) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	for i := range lb.instances {
		if lb.instances[i].ID == id {
			lb.instances[i].Healthy = healthy
			return
		}
	}
}

// RecordConnection adjusts an instance's open connection count (+1/-1 via
// delta) after a dispatch starts/ends.
func (lb *LoadBalancer) RecordConnection(id uuid.UUID, delta int64) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	for i := range lb.instances {
		if lb.instances[i].ID == id {
			lb.instances[i].Connections += delta
			if lb.instances[i].Connections < 0 {
				lb.instances[i].Connections = 0
			}
			return
		}
	}
}

// RecordResponseTime updates an instance's observed mean response time
// (caller computes the running mean; this just stores it).
func (lb *LoadBalancer) RecordResponseTime(id uuid.UUID, meanSeconds float64) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	for i := range lb.instances {
		if lb.instances[i].ID == id {
			lb.instances[i].MeanResponseTime = meanSeconds
			return
		}
	}
}

// ErrNoHealthyInstances is returned when every registered instance is
// unhealthy (or none are registered).
type noHealthyInstancesError struct{}

func (noHealthyInstancesError) Error() string { return "load balancer: no healthy instances" }

var ErrNoHealthyInstances error = noHealthyInstancesError{}

// Select filters to healthy instances, then applies the configured
// strategy. clientIP is only consulted by the ip-hash strategy.
func (lb *LoadBalancer) Select(clientIP string) (Instance, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	healthy := make([]Instance, 0, len(lb.instances))
	for _, inst := range lb.instances {
		if inst.Healthy {
			healthy = append(healthy, inst)
		}
	}
	if len(healthy) == 0 {
		return Instance{}, ErrNoHealthyInstances
	}

	switch lb.strategy {
	case StrategyLeastConnections:
		return leastConnections(healthy), nil
	case StrategyRandom:
		return healthy[lb.rng.Intn(len(healthy))], nil
	case StrategyWeightedResponseTime:
		return weightedResponseTime(healthy), nil
	case StrategyIPHash:
		return ipHash(healthy, clientIP), nil
	default: // StrategyRoundRobin
		idx := atomic.AddUint64(&lb.counter, 1) - 1
		return healthy[idx%uint64(len(healthy))], nil
	}
}

func leastConnections(instances []Instance) Instance {
	best := instances[0]
	for _, inst := range instances[1:] {
		if inst.Connections < best.Connections {
			best = inst
		}
	}
	return best
}

func weightedResponseTime(instances []Instance) Instance {
	best := instances[0]
	for _, inst := range instances[1:] {
		if inst.MeanResponseTime < best.MeanResponseTime {
			best = inst
		}
	}
	return best
}

func ipHash(instances []Instance, clientIP string) Instance {
	h := fnv.New32a()
	_, _ = h.Write([]byte(clientIP))
	idx := h.Sum32() % uint32(len(instances))
	return instances[idx]
}
