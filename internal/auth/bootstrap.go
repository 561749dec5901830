// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// BootstrapConfig holds the credentials for the first administrator.
type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
}

// Enabled reports whether an admin email is configured.
func (c BootstrapConfig) Enabled() bool {
	return NormalizeEmail(c.AdminEmail) != ""
}

// EnsureAdminBootstrap creates the configured administrator when the user
// table is empty. It returns true only if this call inserted the admin.
// A concurrent bootstrap that wins the race is not an error.
func EnsureAdminBootstrap(ctx context.Context, users UserRepository, hasher PasswordHasher, cfg BootstrapConfig) (bool, error) {
	count, err := users.Count(ctx)
	if err != nil {
		return false, storageError("count users", err)
	}
	if count > 0 {
		return false, nil
	}

	email := NormalizeEmail(cfg.AdminEmail)
	if email == "" || PasswordTooShort(cfg.AdminPassword) {
		return false, oops.Code(CodeConfiguration).Errorf("missing or weak admin credentials")
	}
	if err := ValidateEmail(email); err != nil {
		return false, oops.Code(CodeConfiguration).
			With("cause", err.Error()).
			Errorf("invalid admin email")
	}

	hash, err := hasher.Hash(cfg.AdminPassword)
	if err != nil {
		return false, oops.Code(CodeConfiguration).
			With("cause", err.Error()).
			Errorf("hash admin password")
	}
	admin, err := NewUser(email, hash, RoleAdmin)
	if err != nil {
		return false, oops.Code(CodeConfiguration).
			With("cause", err.Error()).
			Errorf("build admin user")
	}

	if err := users.Create(ctx, admin); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return false, nil
		}
		return false, storageError("create admin user", err)
	}

	slog.InfoContext(ctx, "bootstrapped admin user", "user_id", admin.ID)
	return true, nil
}
