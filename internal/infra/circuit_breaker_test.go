package infra

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func TestCircuitBreaker_Transitions(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cb := newCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 2, OpenTimeout: time.Minute},
		func() time.Time { return now })

	assert.Equal(t, CBClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, CBClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, CBOpen, cb.State())

	called := false
	assert.ErrorIs(t, cb.Execute(func() error { called = true; return nil }), ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(time.Minute)
	assert.Equal(t, CBHalfOpen, cb.State())
	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBHalfOpen, cb.State())
	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBClosed, cb.State())

	state, failures := cb.Snapshot()
	assert.Equal(t, CBClosed, state)
	assert.Zero(t, failures)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cb := newCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Second},
		func() time.Time { return now })

	_ = cb.Execute(func() error { return errBoom })
	now = now.Add(2 * time.Second)
	assert.Equal(t, CBHalfOpen, cb.State())
	_ = cb.Execute(func() error { return errBoom })
	assert.Equal(t, CBOpen, cb.State())
	assert.Equal(t, "open", cb.State().String())
	_, failures := cb.Snapshot()
	assert.Zero(t, failures)

	// The cool-down restarts from the failed trial call.
	now = now.Add(500 * time.Millisecond)
	assert.Equal(t, CBOpen, cb.State())
	now = now.Add(time.Second)
	assert.Equal(t, CBHalfOpen, cb.State())
}
