// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package auth

import (
	"sync"
	"time"

	"github.com/samber/oops"
)

// Login rate limit defaults.
const (
	DefaultLoginRateLimit  = 5
	DefaultLoginRateWindow = 15 * time.Minute
)

type rateLimitEntry struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window counter keyed by arbitrary strings.
//
// State lives in process memory; each instance counts independently.
type RateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	entries   map[string]*rateLimitEntry
	lastSweep time.Time
	now       func() time.Time
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterClock sets the clock used for window arithmetic.
func WithRateLimiterClock(now func() time.Time) RateLimiterOption {
	return func(r *RateLimiter) {
		r.now = now
	}
}

// NewRateLimiter creates a limiter allowing limit calls per window per key.
func NewRateLimiter(limit int, window time.Duration, opts ...RateLimiterOption) (*RateLimiter, error) {
	if limit <= 0 {
		return nil, oops.Code("RATE_LIMIT_INVALID").With("limit", limit).Errorf("limit must be positive")
	}
	if window <= 0 {
		return nil, oops.Code("RATE_LIMIT_INVALID").With("window", window).Errorf("window must be positive")
	}
	r := &RateLimiter{
		limit:   limit,
		window:  window,
		entries: make(map[string]*rateLimitEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.lastSweep = r.now()
	return r, nil
}

// IsLimited records a call for key and reports whether it exceeds the limit.
// A limited call is not counted.
func (r *RateLimiter) IsLimited(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.lastSweep) > r.window {
		r.sweep(now)
	}

	entry, ok := r.entries[key]
	if !ok || now.After(entry.resetAt) {
		r.entries[key] = &rateLimitEntry{count: 1, resetAt: now.Add(r.window)}
		return false
	}
	if entry.count >= r.limit {
		return true
	}
	entry.count++
	return false
}

// Reset forgets all tracked keys.
func (r *RateLimiter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*rateLimitEntry)
	r.lastSweep = r.now()
}

// Len returns the number of tracked keys.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// sweep drops entries whose window has passed. Caller holds mu.
func (r *RateLimiter) sweep(now time.Time) {
	for key, entry := range r.entries {
		if now.After(entry.resetAt) {
			delete(r.entries, key)
		}
	}
	r.lastSweep = now
}

// LoginRateLimitKey builds the limiter key for a login attempt.
func LoginRateLimitKey(clientAddr, email string) string {
	if email == "" {
		email = "unknown"
	}
	return clientAddr + ":" + email
}
