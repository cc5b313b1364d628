package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func newLimiter(limit int) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(Config{Window: time.Minute, Max: limit, Clock: clock.Now}), clock
}

func TestLimiter_RejectsOverLimit(t *testing.T) {
	l, _ := newLimiter(3)

	for i := 0; i < 3; i++ {
		d := l.Allow("1.2.3.4")
		assert.True(t, d.Allowed, "request %d", i+1)
		assert.Equal(t, 3, d.Limit)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d := l.Allow("1.2.3.4")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	assert.True(t, l.Allow("5.6.7.8").Allowed, "identities are independent")
}

func TestLimiter_WindowReset(t *testing.T) {
	l, clock := newLimiter(2)

	assert.True(t, l.Allow("ip").Allowed)
	assert.True(t, l.Allow("ip").Allowed)
	assert.False(t, l.Allow("ip").Allowed)

	clock.Advance(time.Minute)
	assert.False(t, l.Allow("ip").Allowed, "the reset instant itself is still in the window")

	clock.Advance(time.Millisecond)
	d := l.Allow("ip")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, clock.Now().Add(time.Minute), d.ResetAt)
}

func TestLimiter_RejectedRequestsDoNotExtendWindow(t *testing.T) {
	l, clock := newLimiter(1)

	first := l.Allow("ip")
	clock.Advance(30 * time.Second)
	rejected := l.Allow("ip")

	assert.False(t, rejected.Allowed)
	assert.Equal(t, first.ResetAt, rejected.ResetAt)
	assert.Equal(t, 30*time.Second, rejected.RetryAfter(clock.Now()))
}

func TestDecision_RetryAfterRoundsUp(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d := Decision{ResetAt: now.Add(1500 * time.Millisecond)}
	assert.Equal(t, 2*time.Second, d.RetryAfter(now))
	assert.Equal(t, time.Duration(0), d.RetryAfter(now.Add(time.Hour)))
}

func TestLimiter_MaxClients(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(Config{Window: time.Minute, Max: 1, MaxClients: 2, Clock: clock.Now})

	l.Allow("a")
	clock.Advance(time.Second)
	l.Allow("b")
	clock.Advance(time.Second)
	l.Allow("c")

	assert.Equal(t, 2, l.Len())
	assert.True(t, l.Allow("a").Allowed, "oldest identity was evicted and starts fresh")
}

func TestLimiter_Sweep(t *testing.T) {
	l, clock := newLimiter(5)
	l.Allow("a")
	l.Allow("b")
	clock.Advance(30 * time.Second)
	l.Allow("c")

	clock.Advance(31 * time.Second)
	assert.Equal(t, 2, l.Sweep())
	assert.Equal(t, 1, l.Len())
}

func TestLimiter_RunStopsWithContext(t *testing.T) {
	l, _ := newLimiter(1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		l.Run(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
