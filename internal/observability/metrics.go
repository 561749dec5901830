// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Login outcomes.
const (
	LoginSuccess            = "success"
	LoginInvalidCredentials = "invalid_credentials"
	LoginRateLimited        = "rate_limited"
	LoginInvalidRequest     = "invalid_request"
	LoginError              = "error"
)

// Invite events.
const (
	InviteCreated  = "created"
	InviteRevoked  = "revoked"
	InviteRedeemed = "redeemed"
	InviteRejected = "rejected"
)

// Metrics holds the application counters. A nil *Metrics records nothing,
// so callers need not check whether metrics are enabled.
type Metrics struct {
	LoginAttempts *prometheus.CounterVec
	AuthChecks    *prometheus.CounterVec
	Invites       *prometheus.CounterVec
	StorageErrors *prometheus.CounterVec
	SessionsSwept prometheus.Counter
	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// NewMetrics creates the application metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ironlog_login_attempts_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		AuthChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ironlog_auth_checks_total",
			Help: "Session checks on protected routes by outcome",
		}, []string{"outcome"}),
		Invites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ironlog_invites_total",
			Help: "Invite lifecycle events",
		}, []string{"event"}),
		StorageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ironlog_storage_errors_total",
			Help: "Storage failures surfaced to HTTP callers, by route",
		}, []string{"route"}),
		SessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ironlog_sessions_swept_total",
			Help: "Expired sessions removed by sweeps",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ironlog_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "status"}),
		HTTPDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ironlog_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		m.LoginAttempts,
		m.AuthChecks,
		m.Invites,
		m.StorageErrors,
		m.SessionsSwept,
		m.HTTPRequests,
		m.HTTPDurations,
	)
	return m
}

// RecordLogin counts one login attempt.
func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(outcome).Inc()
}

// RecordAuthCheck counts one session check.
func (m *Metrics) RecordAuthCheck(outcome string) {
	if m == nil {
		return
	}
	m.AuthChecks.WithLabelValues(outcome).Inc()
}

// RecordInvite counts one invite event.
func (m *Metrics) RecordInvite(event string) {
	if m == nil {
		return
	}
	m.Invites.WithLabelValues(event).Inc()
}

// RecordStorageError counts a storage failure seen by route.
func (m *Metrics) RecordStorageError(route string) {
	if m == nil {
		return
	}
	m.StorageErrors.WithLabelValues(route).Inc()
}

// AddSessionsSwept adds n removed sessions.
func (m *Metrics) AddSessionsSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsSwept.Add(float64(n))
}

// ObserveRequest records a finished HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPDurations.WithLabelValues(route).Observe(elapsed.Seconds())
}
