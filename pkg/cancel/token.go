// Package cancel implements cooperative cancellation tokens: once cancelled,
// a token stays cancelled, and every registered callback fires exactly once
// — either at cancel time, or immediately on registration if the token is
// already cancelled.
package cancel

import "sync"

// Token is a cooperative cancellation signal. The zero value is not usable;
// construct with New or NewLinked.
type Token struct {
	mu        sync.Mutex
	cancelled bool
	callbacks map[int]func()
	nextID    int

	// parentDetach holds one detach closure per parent this token linked
	// to, so that when this token is itself cancelled it can remove its
	// callback from each parent
	// instead of leaning on GC-weak semantics Go does not offer on this
	// module's go1.23 floor (see DESIGN.md Open Question decision).
	parentDetach []func()
}

// New creates an unlinked, uncancelled token.
func New() *Token {
	return &Token{callbacks: make(map[int]func())}
}

// NewLinked creates a token that is cancelled automatically when any of the
// given parents cancel. The child holds no strong reference back from the
// parent's perspective beyond the single registered callback, which the
// child removes from every parent once it is cancelled itself, avoiding an
// unbounded buildup of dead callbacks on long-lived parents without relying
// on a weak-pointer primitive this module's Go floor doesn't offer.
func NewLinked(parents ...*Token) *Token {
	child := New()
	for _, p := range parents {
		if p == nil {
			continue
		}
		detach := p.OnCancel(func() {
			child.Cancel()
		})
		child.parentDetach = append(child.parentDetach, detach)
	}
	return child
}

// Cancel flips the token to cancelled and fires every registered callback
// exactly once. Idempotent: calling it again is a no-op. Callbacks run
// outside the token's lock so that reentrant registration or cancellation
// from within a callback cannot deadlock.
func (t *Token) Cancel() {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return
	}
	t.cancelled = true
	pending := make([]func(), 0, len(t.callbacks))
	for _, cb := range t.callbacks {
		pending = append(pending, cb)
	}
	t.callbacks = nil
	detach := t.parentDetach
	t.parentDetach = nil
	t.mu.Unlock()

	for _, fn := range pending {
		invokeSafely(fn)
	}
	for _, d := range detach {
		d()
	}
}

// IsCancelled reports whether Cancel has been called.
func (t *Token) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// OnCancel registers a callback to run when the token is cancelled. If the
// token is already cancelled, the callback runs immediately (outside any
// lock) before OnCancel returns. The returned detach function removes the
// callback; calling it after the token has already fired the callback is a
// harmless no-op.
func (t *Token) OnCancel(fn func()) func() {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		invokeSafely(fn)
		return func() {}
	}
	id := t.nextID
	t.nextID++
	t.callbacks[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.callbacks, id)
		t.mu.Unlock()
	}
}

// ThrowIfCancelled returns a non-nil error of kind Cancelled iff the token
// has been cancelled.
func (t *Token) ThrowIfCancelled() error {
	if !t.IsCancelled() {
		return nil
	}
	return errCancelled
}

// invokeSafely runs a callback and swallows any panic so one misbehaving
// subscriber cannot take down the rest of a token's callback chain. Logging
// is intentionally not wired here to keep this package dependency free;
// callers that want visibility should wrap fn themselves before passing it
// to OnCancel.
func invokeSafely(fn func()) {
	defer func() { _ = recover() }()
	fn()
}
