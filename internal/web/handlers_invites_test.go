// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package web_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironlog/ironlog/internal/observability"
)

func TestAdminInvites_RequireAdmin(t *testing.T) {
	h := newHarness(t)
	userCookie := h.registerUser("member@example.com")

	tests := []struct {
		name   string
		method string
		path   string
		cookie *http.Cookie
		want   int
		msg    string
	}{
		{"create without session", http.MethodPost, "/api/admin/invites", nil, http.StatusUnauthorized, "Unauthorized"},
		{"list without session", http.MethodGet, "/api/admin/invites", nil, http.StatusUnauthorized, "Unauthorized"},
		{"revoke without session", http.MethodDelete, "/api/admin/invites/x", nil, http.StatusUnauthorized, "Unauthorized"},
		{"create as user", http.MethodPost, "/api/admin/invites", userCookie, http.StatusForbidden, "Forbidden"},
		{"list as user", http.MethodGet, "/api/admin/invites", userCookie, http.StatusForbidden, "Forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rec := h.do(req)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.msg, decodeBody(t, rec)["error"])
		})
	}
}

func TestAdminInvites_Lifecycle(t *testing.T) {
	h := newHarness(t)
	admin := h.loginAdmin()

	created := h.postJSON("/api/admin/invites", map[string]string{"email": "New@Example.com"}, admin)
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	invite := decodeBody(t, created)["invite"].(map[string]any)
	assert.Equal(t, "new@example.com", invite["email"])
	assert.Len(t, invite["code"], 44)
	assert.NotEmpty(t, invite["expiresAt"])
	id := invite["id"].(string)

	listed := h.get("/api/admin/invites", admin)
	require.Equal(t, http.StatusOK, listed.Code)
	invites := decodeBody(t, listed)["invites"].([]any)
	require.Len(t, invites, 1)
	first := invites[0].(map[string]any)
	assert.Equal(t, id, first["id"])
	assert.NotContains(t, first, "code")

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/invites/"+id, nil)
	req.AddCookie(admin)
	revoked := h.do(req)
	require.Equal(t, http.StatusOK, revoked.Code)
	assert.Equal(t, true, decodeBody(t, revoked)["success"])

	listed = h.get("/api/admin/invites", admin)
	assert.Empty(t, decodeBody(t, listed)["invites"])

	check := h.postJSON("/api/invites/check", map[string]string{"code": invite["code"].(string)})
	assert.Equal(t, false, decodeBody(t, check)["isValid"])

	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.Invites.WithLabelValues(observability.InviteCreated)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.Invites.WithLabelValues(observability.InviteRevoked)), 0)
}

func TestAdminInvites_CreateRequiresEmail(t *testing.T) {
	h := newHarness(t)
	admin := h.loginAdmin()

	for _, body := range []any{map[string]string{}, map[string]string{"email": "   "}} {
		rec := h.postJSON("/api/admin/invites", body, admin)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Email is required", decodeBody(t, rec)["error"])
	}

	rec := h.postJSON("/api/admin/invites", map[string]string{"email": "bob"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email must be a valid address", decodeBody(t, rec)["error"])
}

func TestInviteCheck(t *testing.T) {
	h := newHarness(t)
	issued, err := h.invites.Create(context.Background(), "new@example.com", "admin-id")
	require.NoError(t, err)

	valid := h.postJSON("/api/invites/check", map[string]string{"code": issued.Code})
	assert.Equal(t, true, decodeBody(t, valid)["isValid"])

	invalid := h.postForm("/api/invites/check", url.Values{"code": {"nope"}})
	assert.Equal(t, http.StatusOK, invalid.Code)
	assert.Equal(t, false, decodeBody(t, invalid)["isValid"])
}

func TestRedeem_SignsInAndRedirects(t *testing.T) {
	h := newHarness(t)
	issued, err := h.invites.Create(context.Background(), "new@example.com", "admin-id")
	require.NoError(t, err)

	rec := h.postJSON("/api/invites/redeem", map[string]string{
		"code":            issued.Code,
		"password":        userPassword,
		"confirmPassword": userPassword,
	})

	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/", rec.Header().Get("Location"))
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)

	me := decodeBody(t, h.get("/api/auth/me", cookie))["user"].(map[string]any)
	assert.Equal(t, "new@example.com", me["email"])
	assert.Equal(t, "user", me["role"])

	// the new account can log in with its password
	login, _ := h.login("new@example.com", userPassword)
	assert.Equal(t, http.StatusOK, login.Code)
}

func TestRedeem_Failures(t *testing.T) {
	h := newHarness(t)
	issued, err := h.invites.Create(context.Background(), "new@example.com", "admin-id")
	require.NoError(t, err)
	taken, err := h.invites.Create(context.Background(), adminEmail, "admin-id")
	require.NoError(t, err)
	h.loginAdmin()

	tests := []struct {
		name string
		form url.Values
		msg  string
	}{
		{"missing code", url.Values{"password": {userPassword}, "confirmPassword": {userPassword}}, "Invalid code"},
		{"short password", url.Values{"code": {issued.Code}, "password": {"short"}, "confirmPassword": {"short"}}, "Password must be at least 12 characters"},
		{"mismatch", url.Values{"code": {issued.Code}, "password": {userPassword}, "confirmPassword": {userPassword + "!"}}, "Passwords do not match"},
		{"unknown code", url.Values{"code": {"bogus"}, "password": {userPassword}, "confirmPassword": {userPassword}}, "Invalid or expired invite"},
		{"email already registered", url.Values{"code": {taken.Code}, "password": {userPassword}, "confirmPassword": {userPassword}}, "User already registered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.postForm("/api/invites/redeem", tt.form)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.msg, decodeBody(t, rec)["error"])
			assert.Nil(t, sessionCookie(rec))
		})
	}
}

func TestRedeem_SingleUse(t *testing.T) {
	h := newHarness(t)
	issued, err := h.invites.Create(context.Background(), "new@example.com", "admin-id")
	require.NoError(t, err)
	form := url.Values{"code": {issued.Code}, "password": {userPassword}, "confirmPassword": {userPassword}}

	first := h.postForm("/api/invites/redeem", form)
	require.Equal(t, http.StatusSeeOther, first.Code)

	second := h.postForm("/api/invites/redeem", form)
	assert.Equal(t, http.StatusBadRequest, second.Code)
	assert.Equal(t, "Invalid or expired invite", decodeBody(t, second)["error"])

	n, err := h.store.Users().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.Invites.WithLabelValues(observability.InviteRejected)), 0)
}
