package result

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOkValue(t *testing.T) {
	r := Ok(42)
	require.True(t, r.IsOk())
	v, ok := r.Value()
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestErrValue(t *testing.T) {
	e := New(KindTimeout, "waited %dms", 500)
	r := Err[int](e)
	require.True(t, r.IsErr())
	assert.Equal(t, KindTimeout, r.Error().Kind)
	assert.Equal(t, 0, r.ValueOr(0))
}

func TestValueOrPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.Equal(t, 7, Ok(7).ValueOrPanic())
	})
	assert.Panics(t, func() {
		Err[int](New(KindUnknown, "boom")).ValueOrPanic()
	})
}

func TestMapAndThen(t *testing.T) {
	r := Ok(3)
	doubled := Map(r, func(v int) int { return v * 2 })
	assert.Equal(t, 6, doubled.ValueOr(-1))

	chained := AndThen(doubled, func(v int) Result[string] {
		if v != 6 {
			return Err[string](New(KindInvalidArgument, "unexpected"))
		}
		return Ok("six")
	})
	assert.Equal(t, "six", chained.ValueOr(""))

	failed := Err[int](New(KindQueueFull, "full"))
	short := AndThen(failed, func(v int) Result[string] {
		t.Fatal("should not be called")
		return Ok("")
	})
	require.True(t, short.IsErr())
	assert.Equal(t, KindQueueFull, short.Error().Kind)
}

func TestErrorWrapAndIs(t *testing.T) {
	cause := New(KindIOError, "disk full")
	wrapped := Wrap(cause, KindJobExecutionFailed, "job %q failed", "ingest")
	require.Error(t, wrapped)
	assert.Contains(t, wrapped.Error(), "disk full")
	assert.Equal(t, cause, wrapped.Unwrap())
	assert.True(t, errors.Is(wrapped, &Error{Kind: KindJobExecutionFailed}))
	assert.True(t, errors.Is(wrapped, &Error{Kind: KindIOError}))
	assert.False(t, errors.Is(wrapped, &Error{Kind: KindTimeout}))
}
