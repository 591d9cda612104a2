package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kcenon/messaging-fabric/pkg/container"
	"github.com/kcenon/messaging-fabric/pkg/executor"
	"github.com/kcenon/messaging-fabric/pkg/result"
)

var _ Bus = (*NATSBus)(nil)

// NATSBus is the optional network-backed implementation: it dispatches
// locally exactly like MemoryBus, but additionally egresses every published
// container onto a shared NATS subject and ingests containers other
// processes publish there, routing them into the local router. It is the
// bridge referred to in the routing core's "optional network egress/
// ingress bridge".
type NATSBus struct {
	*MemoryBus
	conn    *nats.Conn
	subject string
	ingress *nats.Subscription
}

// NewNATSBus dials url and returns a NATSBus bridging the given subject.
// ioExec and workerExec are used exactly as in MemoryBus; egress publishes
// are additionally submitted onto ioExec so a slow or unreachable NATS
// server applies backpressure the same way local routing work does.
func NewNATSBus(url, subject string, ioExec, workerExec executor.Executor) (*NATSBus, error) {
	conn, err := nats.Connect(url,
		nats.Name("messaging-fabric"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSBus{
		MemoryBus: New(ioExec, workerExec),
		conn:      conn,
		subject:   subject,
	}, nil
}

func (b *NATSBus) Start(ctx context.Context) result.Result[result.Unit] {
	res := b.MemoryBus.Start(ctx)
	if res.IsErr() {
		return res
	}

	sub, err := b.conn.Subscribe(b.subject, func(m *nats.Msg) {
		cr := container.Deserialize(m.Data)
		c, ok := cr.Value()
		if !ok {
			b.log.Error(cr.Error(), "nats ingress: malformed container", "subject", b.subject)
			return
		}
		// Route locally only; re-egressing would echo every remote
		// message straight back out onto the same subject.
		if r := b.MemoryBus.PublishAsync(c); r.IsErr() {
			b.log.Error(r.Error(), "nats ingress: local dispatch failed", "topic", c.Topic)
		}
	})
	if err != nil {
		b.MemoryBus.Stop(ctx)
		return result.Err[result.Unit](result.Wrap(err, result.KindNetworkError, "nats subscribe failed"))
	}
	b.ingress = sub
	return result.OkVoid()
}

func (b *NATSBus) Stop(ctx context.Context) result.Result[result.Unit] {
	if b.ingress != nil {
		_ = b.ingress.Unsubscribe()
		b.ingress = nil
	}
	res := b.MemoryBus.Stop(ctx)
	b.conn.Close()
	return res
}

// PublishAsync dispatches locally (as MemoryBus does) and additionally
// egresses msg onto the bridged NATS subject for other processes.
func (b *NATSBus) PublishAsync(msg *container.Container) result.Result[result.Unit] {
	res := b.MemoryBus.PublishAsync(msg)
	if res.IsErr() {
		return res
	}
	b.ioExec.Submit(func() { b.egress(msg) })
	return res
}

// PublishSync dispatches locally and waits for local subscribers exactly as
// MemoryBus does, then best-effort egresses msg for remote subscribers —
// remote delivery is not part of the synchronous wait.
func (b *NATSBus) PublishSync(msg *container.Container) result.Result[result.Unit] {
	res := b.MemoryBus.PublishSync(msg)
	if res.IsErr() {
		return res
	}
	b.ioExec.Submit(func() { b.egress(msg) })
	return res
}

func (b *NATSBus) egress(msg *container.Container) {
	data, err := msg.Serialize()
	if err != nil {
		b.log.Error(err, "nats egress: serialize failed", "topic", msg.Topic)
		return
	}
	if err := b.conn.Publish(b.subject, data); err != nil {
		b.log.Error(err, "nats egress: publish failed", "topic", msg.Topic)
	}
}

// Conn exposes the underlying NATS connection for advanced use (custom
// subjects, JetStream) outside the Bus contract.
func (b *NATSBus) Conn() *nats.Conn { return b.conn }
