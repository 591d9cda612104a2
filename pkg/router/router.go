// Package router implements hierarchical topic matching with priority-
// ordered, filter-capable dispatch: TopicRouter (C8) from the messaging
// fabric's routing core.
package router

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/kcenon/messaging-fabric/pkg/container"
	"github.com/kcenon/messaging-fabric/pkg/executor"
	"github.com/kcenon/messaging-fabric/pkg/job"
	"github.com/kcenon/messaging-fabric/pkg/logging"
	"github.com/kcenon/messaging-fabric/pkg/result"
)

// DefaultPriority is used when a subscription doesn't specify one.
const DefaultPriority = 5

// Callback receives a matched message for dispatch. An error return is
// surfaced to a synchronous publisher; async publishers only log it.
type Callback func(msg *container.Container) error

// Filter decides whether a matched subscription actually wants a given
// message, applied after pattern matching.
type Filter func(msg *container.Container) bool

type subscription struct {
	id       uint64
	pattern  *Pattern
	callback Callback
	filter   Filter
	priority int
}

// AroundDispatch wraps a single subscription's callback invocation, so
// callers (the bus, typically) can install cross-cutting behavior like a
// scoped trace context around every dispatch without the router needing
// to know about tracing itself.
type AroundDispatch func(msg *container.Container, run func())

// Router holds subscriptions under a RWMutex (readers dominate, per the
// routing core's shared-resource policy) and submits matched dispatches
// as jobs to an Executor — it never invokes a callback on the calling
// goroutine.
type Router struct {
	id   uuid.UUID
	exec executor.Executor
	log  logr.Logger

	mu        sync.RWMutex
	subs      map[uint64]*subscription
	nextID    uint64
	routedAll int64 // approximate: Dispatch call count (Route goes through Dispatch), see DESIGN Open Question

	around AroundDispatch
}

// New creates a Router that dispatches matched callbacks through exec.
func New(exec executor.Executor) *Router {
	return &Router{
		id:     uuid.New(),
		exec:   exec,
		log:    logging.For(logging.ComponentRouter),
		subs:   make(map[uint64]*subscription),
		around: func(_ *container.Container, run func()) { run() },
	}
}

// ID identifies this router instance, for correlating metrics across
// multiple routers in the same process.
func (r *Router) ID() uuid.UUID { return r.id }

// SetAroundDispatch installs a dispatch-wrapping hook, replacing the
// default no-op. Intended for the bus layer to inject scoped tracing.
func (r *Router) SetAroundDispatch(fn AroundDispatch) {
	if fn == nil {
		fn = func(_ *container.Container, run func()) { run() }
	}
	r.mu.Lock()
	r.around = fn
	r.mu.Unlock()
}

// SubscribeOption configures an optional aspect of a subscription.
type SubscribeOption func(*subscription)

// WithFilter attaches a predicate evaluated after pattern matching.
func WithFilter(f Filter) SubscribeOption {
	return func(s *subscription) { s.filter = f }
}

// WithPriority overrides DefaultPriority; higher values are dispatched
// first among concurrent matches for the same topic.
func WithPriority(p int) SubscribeOption {
	return func(s *subscription) { s.priority = p }
}

// Subscribe registers cb against pattern and returns a new id uniquely
// identifying the subscription for later Unsubscribe calls.
func (r *Router) Subscribe(pattern string, cb Callback, opts ...SubscribeOption) uint64 {
	s := &subscription{
		pattern:  Compile(pattern),
		callback: cb,
		priority: DefaultPriority,
	}
	for _, opt := range opts {
		opt(s)
	}

	r.mu.Lock()
	r.nextID++
	s.id = r.nextID
	r.subs[s.id] = s
	r.mu.Unlock()

	return s.id
}

// Unsubscribe removes a subscription by id. Removing an id that doesn't
// exist is a no-op.
func (r *Router) Unsubscribe(id uint64) {
	r.mu.Lock()
	delete(r.subs, id)
	r.mu.Unlock()
}

// Handle is a single subscription dispatch in flight: Done closes once the
// callback has run, after which Err holds whatever the callback (or the
// executor, for an enqueue failure) returned.
type Handle struct {
	Done <-chan struct{}
	Err  *error
}

// Route finds every subscription whose pattern matches msg.Topic, applies
// each one's optional filter, sorts survivors by (priority desc, id asc),
// and submits one dispatch job per survivor to the router's executor. A
// topic matching zero subscriptions is success, not an error — Route only
// fails if the executor itself rejects a submission. Callers that need to
// observe per-dispatch completion or errors (a synchronous publisher)
// should call Dispatch instead.
func (r *Router) Route(msg *container.Container) result.Result[result.Unit] {
	_, err := r.Dispatch(msg)
	if err != nil {
		return result.Err[result.Unit](result.Wrap(err, result.KindJobExecutionFailed, "route dispatch failed"))
	}
	return result.OkVoid()
}

// Dispatch matches and sorts subscriptions exactly as Route does, but
// returns one Handle per submitted dispatch job instead of discarding
// them, so a caller can wait for completion and inspect callback errors.
func (r *Router) Dispatch(msg *container.Container) ([]Handle, error) {
	atomic.AddInt64(&r.routedAll, 1)

	r.mu.RLock()
	var matched []*subscription
	for _, s := range r.subs {
		if !s.pattern.Matches(msg.Topic) {
			continue
		}
		if s.filter != nil && !s.filter(msg) {
			continue
		}
		matched = append(matched, s)
	}
	around := r.around
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].priority != matched[j].priority {
			return matched[i].priority > matched[j].priority
		}
		return matched[i].id < matched[j].id
	})

	handles := make([]Handle, 0, len(matched))
	for _, s := range matched {
		sub := s
		var callErr error
		dispatch := &job.Func{
			JobName: "dispatch",
			Fn: func(ctx context.Context) error {
				around(msg, func() { callErr = sub.callback(msg) })
				return callErr
			},
		}
		done, err := r.exec.Execute(dispatch)
		if err != nil {
			return handles, fmt.Errorf("dispatch to subscription %d: %w", sub.id, err)
		}
		handles = append(handles, Handle{Done: done, Err: &callErr})
	}

	return handles, nil
}

// SubscriptionCount reports how many subscriptions are currently
// registered, for monitoring.
func (r *Router) SubscriptionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// RoutedCount reports an approximate count of Dispatch invocations,
// including those made through Route. Spec
// treats this counter as approximate under concurrent access (see
// DESIGN.md Open Question decision), so it is read with a plain atomic
// load rather than under the subscription RWMutex.
func (r *Router) RoutedCount() int64 {
	return atomic.LoadInt64(&r.routedAll)
}
