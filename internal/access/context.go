// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package access

import (
	"context"

	"github.com/ironlog/ironlog/internal/auth"
)

type callerKey struct{}

// WithCaller returns a context carrying the authenticated caller.
func WithCaller(ctx context.Context, a *auth.Authenticated) context.Context {
	return context.WithValue(ctx, callerKey{}, a)
}

// CallerFrom returns the caller stored by WithCaller, or nil.
func CallerFrom(ctx context.Context) *auth.Authenticated {
	a, _ := ctx.Value(callerKey{}).(*auth.Authenticated)
	return a
}
