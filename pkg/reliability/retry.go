package reliability

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/kcenon/messaging-fabric/pkg/result"
)

func cryptoRandFloat64() float64 {
	var b [8]byte
	if _, err := cryptorand.Read(b[:]); err != nil {
		return 0.5
	}
	n := binary.BigEndian.Uint64(b[:]) >> 11 // 53 bits
	return float64(n) / float64(uint64(1)<<53)
}

// RetryPolicy implements exponential backoff with jitter for retrying failed
// operations: network sends through a Bus's NATS bridge, executor
// submissions rejected under backpressure, and similar transient failures.
// Non-retriable errors (bad arguments, cancellation) fail fast.
type RetryPolicy struct {
	// MaxRetries is the maximum number of retry attempts after the initial
	// execution. MaxRetries=3 means up to 4 total attempts.
	MaxRetries int

	// BaseDelay is the initial delay before the first retry. Subsequent
	// delays are BaseDelay * (Multiplier ^ attempt) + jitter.
	BaseDelay time.Duration

	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration

	// Multiplier is the exponential backoff multiplier (typically 2.0).
	Multiplier float64
}

// Execute runs fn with automatic retry on retriable errors, applying
// exponential backoff with +/-25% jitter to avoid thundering herds.
// Context cancellation stops the retry loop immediately.
func (p *RetryPolicy) Execute(ctx context.Context, fn func() error) error {
	var lastErr error
	delay := p.BaseDelay

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			jitterFactor := 0.75 + cryptoRandFloat64()*0.5
			jitter := time.Duration(float64(delay) * jitterFactor)

			select {
			case <-time.After(jitter):
			case <-ctx.Done():
				return ctx.Err()
			}

			delay = time.Duration(float64(delay) * p.Multiplier)
			if delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if !IsRetriable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", p.MaxRetries, lastErr)
}

// IsRetriable reports whether err represents a transient condition worth
// retrying, classified by result.ErrorKind where available and falling back
// to context-level errors otherwise.
func IsRetriable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}

	var re *result.Error
	if errors.As(err, &re) {
		switch re.Kind {
		case result.KindTimeout,
			result.KindNetworkError,
			result.KindQueueFull,
			result.KindResourceExhausted:
			return true
		default:
			return false
		}
	}

	return false
}
