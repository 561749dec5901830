// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package web

import (
	"net"
	"net/http"
	"strings"
)

// ClientAddr returns the address used to key the login rate limiter: the
// first X-Forwarded-For entry, then CF-Connecting-IP, then the host part of
// RemoteAddr, else "unknown".
func ClientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if cf := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); cf != "" {
		return cf
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
