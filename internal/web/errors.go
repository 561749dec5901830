// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package web

import (
	"net/http"

	"github.com/ironlog/ironlog/internal/auth"
	"github.com/ironlog/ironlog/pkg/errutil"
)

// statusFor maps an auth error code to its HTTP status. Unknown codes are
// server errors.
func statusFor(err error) int {
	switch errutil.Code(err) {
	case auth.CodeInvalidCredentials, auth.CodeUnauthorized:
		return http.StatusUnauthorized
	case auth.CodeRateLimited:
		return http.StatusTooManyRequests
	case auth.CodeForbidden:
		return http.StatusForbidden
	case auth.CodeInviteInvalid, auth.CodeUserExists, auth.CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage returns the message safe to show for err. Validation and
// invite errors carry user-facing text; everything else gets fallback.
func clientMessage(err error, fallback string) string {
	switch errutil.Code(err) {
	case auth.CodeValidation, auth.CodeInviteInvalid, auth.CodeUserExists:
		return err.Error()
	}
	return fallback
}
