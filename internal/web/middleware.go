// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package web

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ironlog/ironlog/internal/access"
	"github.com/ironlog/ironlog/internal/auth"
	"github.com/ironlog/ironlog/pkg/errutil"
)

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(b) //nolint:wrapcheck // passthrough
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// instrument wraps next in a server span, request metrics and a debug log line.
func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := s.tracer.Start(r.Context(), route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			))
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.response.status_code", rec.status))
		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}

		elapsed := time.Since(start)
		s.metrics.ObserveRequest(route, rec.status, elapsed)
		s.logger.DebugContext(ctx, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", elapsed)
	})
}

// requireAdmin answers 401 without a valid session and 403 for non-admins.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, err := s.auth.Authenticate(ctx, s.cookies.token(r))
		if err == nil {
			err = auth.Authorize(caller, auth.RoleAdmin)
		}
		if err != nil {
			status := statusFor(err)
			s.metrics.RecordAuthCheck(authOutcome(status))
			switch status {
			case http.StatusUnauthorized:
				writeError(w, status, "Unauthorized")
			case http.StatusForbidden:
				writeError(w, status, "Forbidden")
			default:
				s.metrics.RecordStorageError("admin")
				writeError(w, http.StatusInternalServerError, "Internal error")
			}
			return
		}
		s.metrics.RecordAuthCheck("ok")
		next(w, r.WithContext(access.WithCaller(ctx, caller)))
	}
}

// pageGate redirects to /login without a session and to / when the path
// needs a role the caller lacks.
func (s *Server) pageGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		level := s.policy.Classify(r.URL.Path)
		if level == access.Public {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		caller, err := s.auth.Authenticate(ctx, s.cookies.token(r))
		if err != nil {
			if !errutil.HasCode(err, auth.CodeUnauthorized) {
				errutil.LogErrorContext(ctx, s.logger, "page gate session check failed", err)
			}
			s.metrics.RecordAuthCheck("unauthorized")
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err := auth.Authorize(caller, level.Role()); err != nil {
			s.metrics.RecordAuthCheck("forbidden")
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		s.metrics.RecordAuthCheck("ok")
		next.ServeHTTP(w, r.WithContext(access.WithCaller(ctx, caller)))
	})
}

func authOutcome(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	default:
		return "error"
	}
}
