// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package web_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ironlog/ironlog/internal/auth"
	"github.com/ironlog/ironlog/internal/auth/memory"
	"github.com/ironlog/ironlog/internal/observability"
	"github.com/ironlog/ironlog/internal/web"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "correct horse battery"
	userPassword  = "a much longer passphrase"
)

type harness struct {
	t       *testing.T
	store   *memory.Store
	invites *auth.InviteService
	metrics *observability.Metrics
	handler http.Handler
}

type harnessOptions struct {
	secure bool
	ready  func(context.Context) error
}

func newHarness(t *testing.T, opts ...func(*harnessOptions)) *harness {
	t.Helper()
	var ho harnessOptions
	for _, o := range opts {
		o(&ho)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()

	hasher, err := auth.NewPBKDF2Hasher(1000)
	require.NoError(t, err)
	limiter, err := auth.NewRateLimiter(auth.DefaultLoginRateLimit, auth.DefaultLoginRateWindow)
	require.NoError(t, err)
	sessions, err := auth.NewSessions(store.Sessions())
	require.NoError(t, err)
	invites, err := auth.NewInviteService(store.Invites(), store.Users(), hasher, auth.WithInviteLogger(logger))
	require.NoError(t, err)
	svc, err := auth.NewAuthService(store.Users(), sessions, hasher, limiter,
		auth.WithBootstrap(auth.BootstrapConfig{AdminEmail: adminEmail, AdminPassword: adminPassword}),
		auth.WithInvites(invites),
		auth.WithLogger(logger),
	)
	require.NoError(t, err)

	webDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(webDir, "index.html"), []byte("<html>app</html>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(webDir, "app.js"), []byte("console.log(1)"), 0o600))

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	srv, err := web.New(svc, invites, web.Options{
		Secure:  ho.secure,
		WebDir:  webDir,
		Metrics: metrics,
		Logger:  logger,
		Ready:   ho.ready,
	})
	require.NoError(t, err)

	return &harness{t: t, store: store, invites: invites, metrics: metrics, handler: srv.Handler()}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	h.t.Helper()
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) postJSON(path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	h.t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(h.t, err)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return h.do(req)
}

func (h *harness) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	h.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(req)
}

func (h *harness) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	h.t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return h.do(req)
}

func (h *harness) login(email, password string) (*httptest.ResponseRecorder, *http.Cookie) {
	h.t.Helper()
	rec := h.postJSON("/api/auth/login", map[string]string{"email": email, "password": password})
	return rec, sessionCookie(rec)
}

func (h *harness) loginAdmin() *http.Cookie {
	h.t.Helper()
	rec, c := h.login(adminEmail, adminPassword)
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(h.t, c)
	return c
}

// registerUser invites and redeems email, returning the new session cookie.
func (h *harness) registerUser(email string) *http.Cookie {
	h.t.Helper()
	issued, err := h.invites.Create(context.Background(), email, "admin-id")
	require.NoError(h.t, err)
	rec := h.postForm("/api/invites/redeem", url.Values{
		"code":            {issued.Code},
		"password":        {userPassword},
		"confirmPassword": {userPassword},
	})
	require.Equal(h.t, http.StatusSeeOther, rec.Code, rec.Body.String())
	c := sessionCookie(rec)
	require.NotNil(h.t, c)
	return c
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == web.SessionCookie || c.Name == web.SecureSessionCookie {
			return c
		}
	}
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func assertMaxAge(t *testing.T, c *http.Cookie, want time.Duration) {
	t.Helper()
	require.Equal(t, int(want/time.Second), c.MaxAge)
}
