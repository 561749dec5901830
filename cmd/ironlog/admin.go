// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/ironlog/ironlog/internal/auth"
)

// NewBootstrapAdminCmd creates the bootstrap-admin subcommand.
func NewBootstrapAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Create the configured administrator if no users exist",
		Long: `Create the administrator from ADMIN_EMAIL and ADMIN_PASSWORD when the
user table is empty. Does nothing once any account exists.`,
		Args: cobra.NoArgs,
		RunE: runBootstrapAdmin,
	}
}

func runBootstrapAdmin(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.Bootstrap().Enabled() {
		return oops.Code("CONFIG_INVALID").Errorf("auth.admin_email is required (set ADMIN_EMAIL)")
	}
	if _, err := requireDatabase(cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	hasher, err := auth.NewPBKDF2Hasher(cfg.Auth.PBKDF2Iterations)
	if err != nil {
		return err
	}
	created, err := auth.EnsureAdminBootstrap(ctx, b.users, hasher, cfg.Bootstrap())
	if err != nil {
		return err
	}
	if created {
		cmd.Println("Administrator created:", auth.NormalizeEmail(cfg.Auth.AdminEmail))
	} else {
		cmd.Println("Users already exist; nothing to do")
	}
	return nil
}
