// Package ratelimit implements per-client request admission over fixed windows.
package ratelimit

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Clock returns the current time.
type Clock func() time.Time

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns the time left until the window resets, rounded up to whole seconds.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait <= 0 {
		return 0
	}
	return wait.Truncate(time.Second) + roundUp(wait%time.Second)
}

func roundUp(rem time.Duration) time.Duration {
	if rem > 0 {
		return time.Second
	}
	return 0
}

type window struct {
	count   int
	resetAt time.Time
}

// Config configures a Limiter.
type Config struct {
	Window     time.Duration
	Max        int
	MaxClients int // zero means unbounded
	Clock      Clock
}

// Limiter admits at most Max requests per client identity per window.
// The first request of an identity opens a window; a request after the reset
// instant opens a fresh one.
type Limiter struct {
	mu         sync.Mutex
	windows    map[string]*window
	window     time.Duration
	max        int
	maxClients int
	now        Clock
}

// New creates a Limiter.
func New(cfg Config) *Limiter {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		windows:    make(map[string]*window),
		window:     cfg.Window,
		max:        cfg.Max,
		maxClients: cfg.MaxClients,
		now:        now,
	}
}

// Now returns the limiter's current time.
func (l *Limiter) Now() time.Time {
	return l.now()
}

// Allow records a request from key and reports whether it is admitted.
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		if !ok {
			l.makeRoomLocked(now)
		}
		w = &window{count: 1, resetAt: now.Add(l.window)}
		l.windows[key] = w
		return l.decision(true, w)
	}

	if w.count >= l.max {
		return l.decision(false, w)
	}

	w.count++
	return l.decision(true, w)
}

func (l *Limiter) decision(allowed bool, w *window) Decision {
	return Decision{
		Allowed:   allowed,
		Limit:     l.max,
		Remaining: max(l.max-w.count, 0),
		ResetAt:   w.resetAt,
	}
}

// Len returns the number of tracked identities.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Sweep forgets identities whose window has ended and returns how many were removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweepLocked(l.now())
}

// Run sweeps ended windows every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				zlog.Debug().Msgf("rate limiter sweep: removed=%d remaining=%d", n, l.Len())
			}
		}
	}
}

func (l *Limiter) sweepLocked(now time.Time) int {
	removed := 0
	for k, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, k)
			removed++
		}
	}
	return removed
}

// makeRoomLocked keeps the identity count under MaxClients. Ended windows go first,
// then the window closest to its reset.
func (l *Limiter) makeRoomLocked(now time.Time) {
	if l.maxClients <= 0 || len(l.windows) < l.maxClients {
		return
	}
	l.sweepLocked(now)
	if len(l.windows) < l.maxClients {
		return
	}

	var (
		victim  string
		soonest time.Time
		found   bool
	)
	for k, w := range l.windows {
		if !found || w.resetAt.Before(soonest) {
			victim, soonest, found = k, w.resetAt, true
		}
	}
	if found {
		delete(l.windows, victim)
	}
}
