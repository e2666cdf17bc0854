// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package command

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Rate limiter defaults.
const (
	DefaultBurstCapacity   = 10
	DefaultSustainedRate   = 2.0
	MinSustainedRate       = 0.1
	DefaultCleanupInterval = 5 * time.Minute
	DefaultSessionMaxAge   = time.Hour
)

// RateLimiterConfig configures the rate limiter. Zero fields take defaults.
type RateLimiterConfig struct {
	BurstCapacity int
	// SustainedRate is the refill rate in commands per second.
	SustainedRate float64
	SessionMaxAge time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// RateLimiter is a per-session token bucket. It is safe for concurrent use.
type RateLimiter struct {
	mu       sync.Mutex
	sessions map[string]*bucket
	burst    float64
	rate     float64
	maxAge   time.Duration
	now      func() time.Time
	gauge    prometheus.Gauge
}

// NewRateLimiter creates a rate limiter. Call Run to evict idle sessions.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		sessions: make(map[string]*bucket),
		burst:    float64(cfg.BurstCapacity),
		rate:     cfg.SustainedRate,
		maxAge:   cfg.SessionMaxAge,
		now:      cfg.Now,
	}
	if rl.burst < 1 {
		rl.burst = DefaultBurstCapacity
	}
	switch {
	case rl.rate <= 0:
		rl.rate = DefaultSustainedRate
	case rl.rate < MinSustainedRate:
		rl.rate = MinSustainedRate
	}
	if rl.maxAge <= 0 {
		rl.maxAge = DefaultSessionMaxAge
	}
	if rl.now == nil {
		rl.now = time.Now
	}
	return rl
}

// RegisterMetrics registers a gauge of tracked sessions with reg.
func (rl *RateLimiter) RegisterMetrics(reg prometheus.Registerer) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "clawworld_ratelimiter_sessions",
		Help: "Current number of tracked rate limiter sessions",
	})
	reg.MustRegister(gauge)
	rl.mu.Lock()
	rl.gauge = gauge
	rl.mu.Unlock()
}

// Allow consumes one token for sessionID. When none is left it reports the
// milliseconds until the next token.
func (rl *RateLimiter) Allow(sessionID string) (allowed bool, cooldownMs int64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.sessions[sessionID]
	if !ok {
		b = &bucket{tokens: rl.burst, lastCheck: now}
		rl.sessions[sessionID] = b
	}

	b.tokens = min(rl.burst, b.tokens+now.Sub(b.lastCheck).Seconds()*rl.rate)
	b.lastCheck = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	return false, int64((1 - b.tokens) / rl.rate * 1000)
}

// Forget drops a session's bucket, typically on disconnect.
func (rl *RateLimiter) Forget(sessionID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.sessions, sessionID)
	rl.updateGauge()
}

// SessionCount returns the number of tracked sessions.
func (rl *RateLimiter) SessionCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.sessions)
}

// Cleanup removes sessions idle for longer than maxAge.
func (rl *RateLimiter) Cleanup(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	threshold := rl.now().Add(-maxAge)
	for id, b := range rl.sessions {
		if b.lastCheck.Before(threshold) {
			delete(rl.sessions, id)
		}
	}
	rl.updateGauge()
}

func (rl *RateLimiter) updateGauge() {
	if rl.gauge != nil {
		rl.gauge.Set(float64(len(rl.sessions)))
	}
}

// Run evicts idle sessions every interval until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup(rl.maxAge)
		}
	}
}
