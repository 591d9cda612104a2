// Package job defines the unit of work dispatched through the fabric's
// queues and worker pools, and the FIFO queue that holds pending jobs.
package job

import (
	"context"

	"github.com/kcenon/messaging-fabric/pkg/cancel"
)

// Job is the capability every unit of work must provide. Implementations
// range from plain callback jobs to data jobs carrying a byte payload to
// subscriber-dispatch jobs that invoke one matched subscription's callback.
// DoWork must be called at most once per job unless the job re-enqueues
// itself explicitly.
type Job interface {
	// Name identifies the job for logging and metrics.
	Name() string

	// DoWork executes the job's unit of work.
	DoWork(ctx context.Context) error

	// Token returns the job's cancellation token, or nil if the job does
	// not support cooperative cancellation.
	Token() *cancel.Token
}

// Func adapts a plain function into a Job for simple callback-style work.
type Func struct {
	JobName string
	Fn      func(ctx context.Context) error
	Tok     *cancel.Token
}

func (f *Func) Name() string             { return f.JobName }
func (f *Func) Token() *cancel.Token      { return f.Tok }
func (f *Func) DoWork(ctx context.Context) error {
	return f.Fn(ctx)
}

// DataJob carries an opaque byte payload alongside a processing function,
// for work that operates on a fixed chunk of bytes rather than a closure.
type DataJob struct {
	JobName string
	Payload []byte
	Fn      func(ctx context.Context, payload []byte) error
	Tok     *cancel.Token
}

func (d *DataJob) Name() string        { return d.JobName }
func (d *DataJob) Token() *cancel.Token { return d.Tok }
func (d *DataJob) DoWork(ctx context.Context) error {
	return d.Fn(ctx, d.Payload)
}
