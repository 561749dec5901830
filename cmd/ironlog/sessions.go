// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/ironlog/ironlog/internal/auth"
)

// NewSessionsCmd creates the sessions command group.
func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage login sessions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Delete expired sessions",
		Long: `Delete every session whose expiry has passed. Expired sessions are
already rejected at login checks; this only reclaims their rows.`,
		Args: cobra.NoArgs,
		RunE: runSessionsSweep,
	})
	return cmd
}

func runSessionsSweep(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
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

	sessions, err := auth.NewSessions(b.sessions, auth.WithSessionTTLDays(cfg.Auth.SessionTTLDays))
	if err != nil {
		return err
	}
	n, err := sessions.SweepExpired(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Removed %d expired sessions\n", n)
	return nil
}
