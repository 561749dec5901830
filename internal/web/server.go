// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

// Package web is the HTTP adapter: JSON auth and invite endpoints, session
// cookies and the page gate in front of the static web app.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ironlog/ironlog/internal/access"
	"github.com/ironlog/ironlog/internal/auth"
	"github.com/ironlog/ironlog/internal/observability"
)

const tracerName = "github.com/ironlog/ironlog/internal/web"

// Options configures a Server. Zero values are usable except where noted.
type Options struct {
	// Secure selects the __Host- cookie and sets the Secure flag.
	Secure bool
	// WebDir holds the built web app; empty serves 404s behind the gate.
	WebDir string
	// Policy defaults to access.DefaultPolicy.
	Policy *access.Policy
	// Metrics may be nil.
	Metrics *observability.Metrics
	// Logger defaults to slog.Default.
	Logger *slog.Logger
	// Ready backs /api/health; nil always reports healthy.
	Ready func(ctx context.Context) error
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// Server routes HTTP requests to the auth services.
type Server struct {
	auth    *auth.Service
	invites *auth.InviteService
	cookies cookieJar
	webDir  string
	policy  *access.Policy
	metrics *observability.Metrics
	logger  *slog.Logger
	ready   func(ctx context.Context) error
	tracer  trace.Tracer
}

// New creates a Server.
func New(svc *auth.Service, invites *auth.InviteService, opts Options) (*Server, error) {
	if svc == nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("auth service is required")
	}
	if invites == nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("invite service is required")
	}
	if opts.Policy == nil {
		opts.Policy = access.DefaultPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}

	return &Server{
		auth:    svc,
		invites: invites,
		cookies: cookieJar{secure: opts.Secure, ttl: svc.Sessions().TTL()},
		webDir:  opts.WebDir,
		policy:  opts.Policy,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		ready:   opts.Ready,
		tracer:  opts.TracerProvider.Tracer(tracerName),
	}, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.handle(mux, "POST /api/auth/login", s.handleLogin)
	s.handle(mux, "POST /api/auth/logout", s.handleLogout)
	s.handle(mux, "GET /api/auth/me", s.handleMe)
	s.handle(mux, "GET /api/health", s.handleHealth)

	s.handle(mux, "POST /api/invites/check", s.handleCheckInvite)
	s.handle(mux, "POST /api/invites/redeem", s.handleRedeemInvite)

	s.handle(mux, "POST /api/admin/invites", s.requireAdmin(s.handleCreateInvite))
	s.handle(mux, "GET /api/admin/invites", s.requireAdmin(s.handleListInvites))
	s.handle(mux, "DELETE /api/admin/invites/{id}", s.requireAdmin(s.handleRevokeInvite))

	s.handle(mux, "/api/", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	mux.Handle("/", s.instrument("page", s.pageGate(spaFromDisk(s.webDir))))

	return mux
}

func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.instrument(pattern, withNoCache(h)))
}

// HTTPServer wraps Handler in an http.Server with request timeouts.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
