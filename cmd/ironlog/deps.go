// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package main

import (
	"context"
	"net"

	"github.com/ironlog/ironlog/internal/config"
	"github.com/ironlog/ironlog/internal/observability"
	"github.com/ironlog/ironlog/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// BackendOpener connects the auth directory.
	// Default: openBackend
	BackendOpener func(ctx context.Context, cfg config.Config) (*backend, error)

	// MigrateUp applies pending schema migrations.
	// Default: migrateUp
	MigrateUp func(databaseURL string) error

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker) ObservabilityServer

	// Listen opens the web listener.
	// Default: net.Listen
	Listen func(network, address string) (net.Listener, error)
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.BackendOpener == nil {
		out.BackendOpener = openBackend
	}
	if out.MigrateUp == nil {
		out.MigrateUp = migrateUp
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, ready)
		}
	}
	if out.Listen == nil {
		out.Listen = net.Listen
	}
	return &out
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Status() (store.Status, error)
	Force(version int) error
	Close() error
}

// newMigrator is replaced in tests.
var newMigrator = func(databaseURL string) (Migrator, error) {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func migrateUp(databaseURL string) error {
	m, err := newMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer closeMigrator(m)
	return m.Up()
}
