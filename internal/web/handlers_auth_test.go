// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package web_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironlog/ironlog/internal/auth"
	"github.com/ironlog/ironlog/internal/observability"
	"github.com/ironlog/ironlog/internal/web"
)

func TestLogin_BootstrapsAdminAndSetsCookie(t *testing.T) {
	h := newHarness(t)

	rec, cookie := h.login("  Admin@Example.com ", adminPassword)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user := decodeBody(t, rec)["user"].(map[string]any)
	assert.Equal(t, adminEmail, user["email"])
	assert.Equal(t, "admin", user["role"])
	assert.NotEmpty(t, user["id"])

	require.NotNil(t, cookie)
	assert.Equal(t, web.SessionCookie, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assertMaxAge(t, cookie, auth.DefaultSessionTTLDays*24*time.Hour)

	n, err := h.store.Users().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.LoginAttempts.WithLabelValues(observability.LoginSuccess)), 0)
}

func TestLogin_SecureCookieInProduction(t *testing.T) {
	h := newHarness(t, func(o *harnessOptions) { o.secure = true })

	rec, cookie := h.login(adminEmail, adminPassword)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, cookie)
	assert.Equal(t, web.SecureSessionCookie, cookie.Name)
	assert.True(t, cookie.Secure)

	me := h.get("/api/auth/me", cookie)
	assert.NotNil(t, decodeBody(t, me)["user"])
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"email":`},
		{"wrong password", `{"email":"admin@example.com","password":"wrong password!!"}`},
		{"short password", `{"email":"admin@example.com","password":"short"}`},
		{"missing email", `{"password":"correct horse battery"}`},
		{"non-string email", `{"email":42,"password":"correct horse battery"}`},
		{"unknown user", `{"email":"nobody@example.com","password":"correct horse battery"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			rec := h.do(req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Invalid credentials", decodeBody(t, rec)["error"])
			assert.Nil(t, sessionCookie(rec))
		})
	}
}

func TestLogin_RateLimitedAfterFiveAttempts(t *testing.T) {
	h := newHarness(t)
	body := map[string]string{"email": adminEmail, "password": "wrong password!!"}

	for i := range auth.DefaultLoginRateLimit {
		rec := h.postJSON("/api/auth/login", body)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	rec := h.postJSON("/api/auth/login", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many attempts", decodeBody(t, rec)["error"])

	// correct credentials are also refused while limited
	rec, _ = h.login(adminEmail, adminPassword)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.InDelta(t, 2, testutil.ToFloat64(h.metrics.LoginAttempts.WithLabelValues(observability.LoginRateLimited)), 0)
}

func TestLogin_RateLimitKeyedByForwardedAddress(t *testing.T) {
	h := newHarness(t)
	body := `{"email":"admin@example.com","password":"wrong password!!"}`

	send := func(fwd string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		req.Header.Set("X-Forwarded-For", fwd)
		return h.do(req).Code
	}

	for range auth.DefaultLoginRateLimit {
		require.Equal(t, http.StatusUnauthorized, send("203.0.113.1"))
	}
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.1, 10.0.0.1"))
	assert.Equal(t, http.StatusUnauthorized, send("203.0.113.2"))
}

func TestMe(t *testing.T) {
	h := newHarness(t)
	cookie := h.loginAdmin()

	rec := h.get("/api/auth/me", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decodeBody(t, rec)["user"].(map[string]any)
	assert.Equal(t, adminEmail, user["email"])

	anon := h.get("/api/auth/me")
	assert.Equal(t, http.StatusOK, anon.Code)
	assert.Nil(t, decodeBody(t, anon)["user"])

	bogus := h.get("/api/auth/me", &http.Cookie{Name: web.SessionCookie, Value: "not-a-token"})
	assert.Equal(t, http.StatusOK, bogus.Code)
	assert.Nil(t, decodeBody(t, bogus)["user"])
}

func TestLogout_ClearsCookieAndSession(t *testing.T) {
	h := newHarness(t)
	cookie := h.loginAdmin()

	rec := h.postJSON("/api/auth/logout", nil, cookie)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["ok"])
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
	cleared := sessionCookie(rec)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	me := h.get("/api/auth/me", cookie)
	assert.Nil(t, decodeBody(t, me)["user"])
}

func TestLogout_WithoutCookie(t *testing.T) {
	h := newHarness(t)
	rec := h.postJSON("/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["ok"])
}

func TestHealth(t *testing.T) {
	healthy := newHarness(t)
	rec := healthy.get("/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["ok"])
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	down := newHarness(t, func(o *harnessOptions) {
		o.ready = func(context.Context) error { return errors.New("db down") }
	})
	rec = down.get("/api/health")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["ok"])
}

func TestUnknownAPIRoute(t *testing.T) {
	h := newHarness(t)
	rec := h.get("/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", decodeBody(t, rec)["error"])
}

func TestNew_RequiresServices(t *testing.T) {
	_, err := web.New(nil, nil, web.Options{})
	assert.Error(t, err)
}
