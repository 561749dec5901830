// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ironlog/ironlog/internal/store"
)

func startPostgres(ctx context.Context) (*postgres.PostgresContainer, string) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("ironlog_test"),
		postgres.WithUsername("ironlog"),
		postgres.WithPassword("ironlog"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	Expect(err).NotTo(HaveOccurred())

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())
	return container, dsn
}

func tableExists(ctx context.Context, pool *pgxpool.Pool, name string) bool {
	var exists bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, name).
		Scan(&exists)
	Expect(err).NotTo(HaveOccurred())
	return exists
}

var _ = Describe("Migrator", func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		dsn       string
		pool      *pgxpool.Pool
		migrator  *store.Migrator
	)

	BeforeEach(func() {
		ctx = context.Background()
		container, dsn = startPostgres(ctx)

		var err error
		pool, err = store.Open(ctx, dsn, store.OpenOptions{})
		Expect(err).NotTo(HaveOccurred())

		migrator, err = store.NewMigrator(dsn)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = migrator.Close()
		pool.Close()
		_ = container.Terminate(ctx)
	})

	It("starts with everything pending", func() {
		status, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Version).To(BeZero())
		Expect(status.Pending).To(Equal([]uint{1, 2, 3, 4}))
	})

	It("creates the auth tables on Up", func() {
		Expect(migrator.Up()).To(Succeed())

		for _, table := range []string{"users", "sessions", "invites"} {
			Expect(tableExists(ctx, pool, table)).To(BeTrue(), table)
		}

		status, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Version).To(Equal(uint(4)))
		Expect(status.Name).To(Equal("000004_users_email_lower_unique"))
		Expect(status.Pending).To(BeEmpty())
		Expect(status.Dirty).To(BeFalse())
	})

	It("rejects emails differing only in case", func() {
		Expect(migrator.Up()).To(Succeed())

		_, err := pool.Exec(ctx, `INSERT INTO users (id, email, role) VALUES ('u1', 'lifter@example.com', 'user')`)
		Expect(err).NotTo(HaveOccurred())
		_, err = pool.Exec(ctx, `INSERT INTO users (id, email, role) VALUES ('u2', 'Lifter@Example.com', 'user')`)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("users_email_lower_key"))
	})

	It("is idempotent", func() {
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Up()).To(Succeed())
	})

	It("drops everything on Down", func() {
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Down()).To(Succeed())

		Expect(tableExists(ctx, pool, "users")).To(BeFalse())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
	})

	It("steps one migration at a time", func() {
		Expect(migrator.Steps(1)).To(Succeed())
		Expect(tableExists(ctx, pool, "users")).To(BeTrue())
		Expect(tableExists(ctx, pool, "sessions")).To(BeFalse())

		pending, err := migrator.PendingMigrations()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(Equal([]uint{2, 3, 4}))
	})

	It("answers readiness probes", func() {
		Expect(store.ReadinessCheck(pool)(ctx)).To(Succeed())
	})
})
