// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package web

import (
	"net/http"

	"github.com/ironlog/ironlog/internal/auth"
	"github.com/ironlog/ironlog/internal/observability"
	"github.com/ironlog/ironlog/pkg/errutil"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgTooManyAttempts    = "Too many attempts"
	msgUnableToLogin      = "Unable to login"
)

type userResponse struct {
	User *auth.Identity `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload map[string]any
	if err := decodeJSON(w, r, &payload); err != nil {
		s.metrics.RecordLogin(observability.LoginInvalidRequest)
		writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}
	// non-string fields count as absent
	email, _ := payload["email"].(string)
	password, _ := payload["password"].(string)

	res, err := s.auth.Login(ctx, auth.LoginRequest{
		Email:      email,
		Password:   password,
		ClientAddr: ClientAddr(r),
	})
	if err != nil {
		switch statusFor(err) {
		case http.StatusTooManyRequests:
			s.metrics.RecordLogin(observability.LoginRateLimited)
			writeError(w, http.StatusTooManyRequests, msgTooManyAttempts)
		case http.StatusUnauthorized:
			s.metrics.RecordLogin(observability.LoginInvalidCredentials)
			writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
		default:
			s.metrics.RecordLogin(observability.LoginError)
			s.metrics.RecordStorageError("login")
			errutil.LogErrorContext(ctx, s.logger, "login failed", err)
			writeError(w, http.StatusInternalServerError, msgUnableToLogin)
		}
		return
	}

	s.metrics.RecordLogin(observability.LoginSuccess)
	s.cookies.set(w, res.Token)
	writeJSON(w, http.StatusOK, userResponse{User: &res.User})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := s.cookies.token(r); token != "" {
		s.auth.Logout(r.Context(), token)
	}
	s.cookies.clear(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleMe never fails visibly: any problem reads as signed out.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	token := s.cookies.token(r)
	if token == "" {
		writeJSON(w, http.StatusOK, userResponse{})
		return
	}
	caller, err := s.auth.Authenticate(r.Context(), token)
	if err != nil {
		writeJSON(w, http.StatusOK, userResponse{})
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: &caller.Identity})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.ErrorContext(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]bool{"ok": false})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
