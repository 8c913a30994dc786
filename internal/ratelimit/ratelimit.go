package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a sliding-window limiter keyed by an arbitrary string
// (an upstream host, an API name).
type Limiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

type Config struct {
	RequestsPerMinute int
	// Window overrides the one minute window, mostly for tests.
	Window          time.Duration
	CleanupInterval time.Duration
}

func New(cfg Config) *Limiter {
	limit := cfg.RequestsPerMinute
	if limit <= 0 {
		limit = 10
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	l := &Limiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		stop:     make(chan struct{}),
	}
	go l.cleanup(interval)
	return l
}

func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	fresh := l.prune(key, now)

	if len(fresh) >= l.limit {
		return false
	}

	l.requests[key] = append(fresh, now)
	return true
}

// Wait blocks until a request for key is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	for {
		if l.Allow(key) {
			return nil
		}

		delay := time.Until(l.ResetTime(key))
		if delay <= 0 {
			delay = time.Millisecond
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Limiter) RemainingRequests(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rem := l.limit - len(l.prune(key, time.Now())); rem > 0 {
		return rem
	}
	return 0
}

// ResetTime is when the oldest request in the window expires.
func (l *Limiter) ResetTime(key string) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.requests[key]
	if len(ts) == 0 {
		return time.Now()
	}

	oldest := ts[0]
	for _, t := range ts[1:] {
		if t.Before(oldest) {
			oldest = t
		}
	}
	return oldest.Add(l.window)
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// prune drops timestamps outside the window. Caller holds mu.
func (l *Limiter) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)

	old := l.requests[key]
	fresh := old[:0]
	for _, t := range old {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}
	l.requests[key] = fresh
	return fresh
}

func (l *Limiter) cleanup(interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-tick.C:
		}

		l.mu.Lock()
		now := time.Now()
		for key := range l.requests {
			if len(l.prune(key, now)) == 0 {
				delete(l.requests, key)
			}
		}
		l.mu.Unlock()
	}
}
