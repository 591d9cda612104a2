// Package bus implements the message bus (C9): the single entry point
// producers and subscribers use to exchange MessagingContainers. A Bus
// composes one TopicRouter and two Executors — an I/O executor for routing
// work, a worker executor for subscriber dispatch — exactly as the routing
// core's data-flow describes. MemoryBus is the default, in-process
// implementation; NATSBus adds an optional network egress/ingress bridge on
// top of the same local routing.
package bus

import (
	"context"

	"github.com/kcenon/messaging-fabric/pkg/container"
	"github.com/kcenon/messaging-fabric/pkg/result"
	"github.com/kcenon/messaging-fabric/pkg/router"
)

// Bus is the pub/sub contract every implementation (in-process or
// network-bridged) satisfies.
type Bus interface {
	// Start marks the bus running. Failing to call it before Publish*/
	// Subscribe makes those calls fail with KindNotRunning/KindQueueStopped.
	Start(ctx context.Context) result.Result[result.Unit]

	// Stop drains pending dispatches, then tears down the bus's executors.
	// Calling Stop twice, or before Start, fails with KindNotRunning.
	Stop(ctx context.Context) result.Result[result.Unit]

	// IsRunning reports whether Start has been called without a matching
	// Stop.
	IsRunning() bool

	// PublishSync routes msg on the caller's goroutine, waits for every
	// matched subscription's callback to finish, and returns the first
	// callback error (if any) — the rest are logged, not discarded.
	PublishSync(msg *container.Container) result.Result[result.Unit]

	// PublishAsync enqueues routing work on the bus's I/O executor and
	// returns immediately. Callback errors are logged; only a failure to
	// enqueue the routing work itself is returned to the caller.
	PublishAsync(msg *container.Container) result.Result[result.Unit]

	// Subscribe registers cb for pattern via the bus's router.
	Subscribe(pattern string, cb router.Callback, opts ...router.SubscribeOption) result.Result[uint64]

	// Unsubscribe removes a subscription by id.
	Unsubscribe(id uint64) result.Result[result.Unit]
}
