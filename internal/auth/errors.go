// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned by a UserRepository when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// Error codes attached to errors returned by this package. HTTP adapters map
// them to status codes; see internal/web.
const (
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeRateLimited        = "AUTH_RATE_LIMITED"
	CodeUnauthorized       = "AUTH_UNAUTHORIZED"
	CodeForbidden          = "AUTH_FORBIDDEN"
	CodeConfiguration      = "AUTH_CONFIGURATION"
	CodeInviteInvalid      = "INVITE_INVALID_OR_EXPIRED"
	CodeUserExists         = "AUTH_USER_EXISTS"
	CodeValidation         = "AUTH_VALIDATION"
	CodeStorage            = "AUTH_STORAGE"

	CodeSessionInvalid = "SESSION_INVALID"
	CodeSessionExpired = "SESSION_EXPIRED"
)

func storageError(op string, err error) error {
	return oops.Code(CodeStorage).With("operation", op).Wrap(err)
}
