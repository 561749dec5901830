// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package main

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ironlog/ironlog/internal/observability"
	"github.com/ironlog/ironlog/internal/store"
)

// mockObservabilityServer implements ObservabilityServer for testing.
type mockObservabilityServer struct {
	startFunc func() (<-chan error, error)
	stopFunc  func(ctx context.Context) error
	metrics   *observability.Metrics

	mu      sync.Mutex
	started bool
	stopped bool
}

func newMockObservabilityServer() *mockObservabilityServer {
	return &mockObservabilityServer{metrics: observability.NewMetrics(prometheus.NewRegistry())}
}

func (m *mockObservabilityServer) Start() (<-chan error, error) {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	if m.startFunc != nil {
		return m.startFunc()
	}
	return make(chan error, 1), nil
}

func (m *mockObservabilityServer) Stop(ctx context.Context) error {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
	if m.stopFunc != nil {
		return m.stopFunc(ctx)
	}
	return nil
}

func (m *mockObservabilityServer) Addr() string { return "127.0.0.1:9100" }

func (m *mockObservabilityServer) Metrics() *observability.Metrics { return m.metrics }

func (m *mockObservabilityServer) state() (started, stopped bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started, m.stopped
}

// mockMigrator implements Migrator for testing.
type mockMigrator struct {
	upFunc     func() error
	downFunc   func() error
	statusFunc func() (store.Status, error)
	forceFunc  func(version int) error

	calls  []string
	closed bool
}

func (m *mockMigrator) Up() error {
	m.calls = append(m.calls, "up")
	if m.upFunc != nil {
		return m.upFunc()
	}
	return nil
}

func (m *mockMigrator) Down() error {
	m.calls = append(m.calls, "down")
	if m.downFunc != nil {
		return m.downFunc()
	}
	return nil
}

func (m *mockMigrator) Status() (store.Status, error) {
	m.calls = append(m.calls, "status")
	if m.statusFunc != nil {
		return m.statusFunc()
	}
	return store.Status{}, nil
}

func (m *mockMigrator) Force(version int) error {
	m.calls = append(m.calls, "force")
	if m.forceFunc != nil {
		return m.forceFunc(version)
	}
	return nil
}

func (m *mockMigrator) Close() error {
	m.closed = true
	return nil
}
