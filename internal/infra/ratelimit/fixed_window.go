// Package ratelimit implements per-endpoint fixed-window request limiting.
// The HTTP middleware consults the limiter; this package owns the counting.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"tailor/config"
)

// Decision is the outcome of one Allow call, carrying everything the
// middleware needs to populate the rate-limit response headers.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds the wait up to whole seconds, never zero for a
// denied request.
func (d Decision) RetryAfterSeconds() int {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}

	return secs
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter tracks fixed windows per (endpoint, key) pair. Endpoints are
// identified as "METHOD:path". The clock is injected for tests.
type Limiter struct {
	mu      sync.Mutex
	now     func() time.Time
	rules   map[string]config.RateLimitRule
	windows map[string]*window
}

// NewLimiter builds a limiter from the configured rules.
func NewLimiter(rules []config.RateLimitRule) *Limiter {
	return NewLimiterWithClock(rules, time.Now)
}

// NewLimiterWithClock is the test constructor with an injectable clock.
func NewLimiterWithClock(rules []config.RateLimitRule, now func() time.Time) *Limiter {
	byEndpoint := make(map[string]config.RateLimitRule, len(rules))
	for _, rule := range rules {
		byEndpoint[rule.Endpoint] = rule
	}

	return &Limiter{
		now:     now,
		rules:   byEndpoint,
		windows: make(map[string]*window),
	}
}

// Rule returns the configured rule for an endpoint, if any. Endpoints
// without a rule are not limited.
func (l *Limiter) Rule(endpoint string) (config.RateLimitRule, bool) {
	rule, ok := l.rules[endpoint]

	return rule, ok
}

// Allow counts one request against the endpoint's window for the given key.
// The first request of a window fixes its reset time; the counter does not
// slide. When the window has expired the counter restarts at one.
func (l *Limiter) Allow(endpoint, key string) (Decision, bool) {
	rule, ok := l.rules[endpoint]
	if !ok {
		return Decision{Allowed: true}, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	bucket := endpoint + "|" + key

	win, exists := l.windows[bucket]
	if !exists || !now.Before(win.resetAt) {
		win = &window{count: 0, resetAt: now.Add(rule.Window)}
		l.windows[bucket] = win
	}

	if win.count >= rule.Limit {
		return Decision{
			Allowed:    false,
			Limit:      rule.Limit,
			Remaining:  0,
			ResetAt:    win.resetAt,
			RetryAfter: win.resetAt.Sub(now),
		}, true
	}

	win.count++

	return Decision{
		Allowed:   true,
		Limit:     rule.Limit,
		Remaining: rule.Limit - win.count,
		ResetAt:   win.resetAt,
	}, true
}

// Run sweeps expired windows until the context is cancelled. Without it the
// window map grows with every distinct client key.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for bucket, win := range l.windows {
		if !now.Before(win.resetAt) {
			delete(l.windows, bucket)
		}
	}
}
