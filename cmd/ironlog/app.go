// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/ironlog/ironlog/internal/auth"
	"github.com/ironlog/ironlog/internal/auth/memory"
	"github.com/ironlog/ironlog/internal/auth/postgres"
	"github.com/ironlog/ironlog/internal/config"
	"github.com/ironlog/ironlog/internal/store"
)

// backend is the auth directory the commands run against.
type backend struct {
	users    auth.UserRepository
	sessions auth.SessionRepository
	invites  auth.InviteRepository
	// ready is nil for the in-memory store.
	ready func(ctx context.Context) error
	close func()
}

// openBackend connects to PostgreSQL when a database URL is configured and
// falls back to an in-memory directory otherwise. Production configs always
// carry a URL.
func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	if cfg.Database.URL == "" {
		slog.WarnContext(ctx, "no database configured, using in-memory store; data is lost on exit")
		return memoryBackend(memory.New()), nil
	}

	pool, err := store.Open(ctx, cfg.Database.URL, store.OpenOptions{})
	if err != nil {
		return nil, err
	}
	return &backend{
		users:    postgres.NewUserRepository(pool),
		sessions: postgres.NewSessionRepository(pool),
		invites:  postgres.NewInviteRepository(pool),
		ready:    store.ReadinessCheck(pool),
		close:    pool.Close,
	}, nil
}

func memoryBackend(m *memory.Store) *backend {
	return &backend{
		users:    m.Users(),
		sessions: m.Sessions(),
		invites:  m.Invites(),
		close:    func() {},
	}
}

// requireDatabase returns the configured database URL for commands that
// make no sense against the in-memory store.
func requireDatabase(cfg config.Config) (string, error) {
	if cfg.Database.URL == "" {
		return "", oops.Code("CONFIG_INVALID").Errorf("database.url is required (set DATABASE_URL or --database-url)")
	}
	return cfg.Database.URL, nil
}

type services struct {
	hasher   *auth.PBKDF2Hasher
	sessions *auth.Sessions
	invites  *auth.InviteService
	auth     *auth.Service
}

func newServices(cfg config.Config, b *backend, logger *slog.Logger) (*services, error) {
	hasher, err := auth.NewPBKDF2Hasher(cfg.Auth.PBKDF2Iterations)
	if err != nil {
		return nil, err
	}
	limiter, err := auth.NewRateLimiter(cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateWindow)
	if err != nil {
		return nil, err
	}
	sessions, err := auth.NewSessions(b.sessions, auth.WithSessionTTLDays(cfg.Auth.SessionTTLDays))
	if err != nil {
		return nil, err
	}
	invites, err := auth.NewInviteService(b.invites, b.users, hasher, auth.WithInviteLogger(logger))
	if err != nil {
		return nil, err
	}
	svc, err := auth.NewAuthService(b.users, sessions, hasher, limiter,
		auth.WithBootstrap(cfg.Bootstrap()),
		auth.WithInvites(invites),
		auth.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return &services{hasher: hasher, sessions: sessions, invites: invites, auth: svc}, nil
}
