// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package web

import (
	"net/http"
	"time"
)

// Session cookie names. The __Host- prefix requires Secure and Path=/ and
// forbids Domain, so it is only used in production.
const (
	SessionCookie       = "session"
	SecureSessionCookie = "__Host-session"
)

type cookieJar struct {
	secure bool
	ttl    time.Duration
}

func (c cookieJar) name() string {
	if c.secure {
		return SecureSessionCookie
	}
	return SessionCookie
}

func (c cookieJar) set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.ttl / time.Second),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clear emits Max-Age=0, which net/http spells as a negative MaxAge.
func (c cookieJar) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// token returns the session token from r, or "".
func (c cookieJar) token(r *http.Request) string {
	ck, err := r.Cookie(c.name())
	if err != nil {
		return ""
	}
	return ck.Value
}
