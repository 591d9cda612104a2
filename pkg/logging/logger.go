// Package logging provides the fabric's single logging facade: a
// github.com/go-logr/logr.Logger backed by stdr, shared by every package
// that needs structured, leveled output, and bridged into OpenTelemetry's
// own internal diagnostic logger so both surfaces write through one sink.
package logging

import (
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"go.opentelemetry.io/otel"
)

// Component tags every log line with the subsystem that produced it.
type Component string

const (
	ComponentBus         Component = "bus"
	ComponentRouter      Component = "router"
	ComponentWorkerPool  Component = "workerpool"
	ComponentTypedPool   Component = "typedpool"
	ComponentStorage     Component = "storage"
	ComponentMonitor     Component = "monitor"
	ComponentAnalytics   Component = "analytics"
	ComponentOptimizer   Component = "optimizer"
	ComponentReliability Component = "reliability"
	ComponentTrace       Component = "trace"
)

// Verbosity maps onto stdr's integer log levels. stdr treats V(0) as always
// enabled and anything above as debug-ish chatter gated by SetVerbosity.
const (
	LevelInfo  = 0
	LevelDebug = 1
	LevelTrace = 2
)

var base logr.Logger

func init() {
	std := log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
	stdr.SetVerbosity(LevelInfo)
	base = stdr.New(std)
	otel.SetLogger(base.WithName("otel"))
}

// SetVerbosity raises or lowers the global logger's verbosity threshold.
// Values above the threshold are dropped at the call site.
func SetVerbosity(v int) {
	stdr.SetVerbosity(v)
}

// For returns a named logger scoped to component, suitable for embedding
// in a struct and calling .Info/.Error/.V(n).Info on throughout its
// lifetime.
func For(component Component) logr.Logger {
	return base.WithName(string(component))
}

// Base returns the root logger, for callers that need to attach further
// name/value context before handing it to a component (e.g. a per-instance
// ID).
func Base() logr.Logger {
	return base
}
