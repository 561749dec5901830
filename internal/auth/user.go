// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package auth

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinPasswordLength is the shortest password accepted at login, bootstrap and
// invite redemption.
const MinPasswordLength = 12

// PasswordTooShort reports whether password has fewer than MinPasswordLength
// characters.
func PasswordTooShort(password string) bool {
	return utf8.RuneCountInString(password) < MinPasswordLength
}

// ValidateEmail checks that a normalized address can be registered.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("USER_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if !strings.Contains(email, "@") {
		return oops.Code("USER_INVALID_EMAIL").With("email", email).Errorf("email must contain @")
	}
	return nil
}

// NormalizeEmail trims surrounding whitespace and lowercases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// User is an account that can sign in.
//
// PasswordHash may be empty for accounts that cannot log in with a password.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// NewUser creates a validated User with a fresh ID. The email is normalized.
func NewUser(email, passwordHash string, role Role) (*User, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, oops.Code("USER_INVALID_ROLE").Errorf("role %d is not valid", role)
	}
	return &User{
		ID:           ulid.Make().String(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now(),
	}, nil
}

// Identity is the public view of a user carried by a session.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Identity returns the public view of u.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, Role: u.Role}
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Count returns the number of users.
	Count(ctx context.Context) (int, error)

	// GetByEmail retrieves a user by normalized email. Returns ErrNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Create inserts a user. Returns ErrEmailTaken if the email is registered.
	Create(ctx context.Context, user *User) error

	// UpdatePasswordHash replaces the stored password hash.
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
}
