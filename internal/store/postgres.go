// Package store opens the PostgreSQL pool and manages the schema.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// OpenOptions tunes Open.
type OpenOptions struct {
	// MaxConns caps the pool size; zero keeps the pgx default.
	MaxConns int32
	// ConnectAttempts is how many pings are tried before giving up.
	ConnectAttempts uint64
	// ConnectBackoff is the initial delay between pings; it doubles per attempt.
	ConnectBackoff time.Duration
}

func (o OpenOptions) withDefaults() OpenOptions {
	if o.ConnectAttempts == 0 {
		o.ConnectAttempts = 5
	}
	if o.ConnectBackoff <= 0 {
		o.ConnectBackoff = 500 * time.Millisecond
	}
	return o
}

// Open creates a pgx pool for dsn and waits until the database answers a ping.
func Open(ctx context.Context, dsn string, opts OpenOptions) (*pgxpool.Pool, error) {
	opts = opts.withDefaults()

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	backoff := retry.WithMaxRetries(opts.ConnectAttempts-1, retry.NewExponential(opts.ConnectBackoff))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", attempt).
			Wrap(err)
	}
	return pool, nil
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck returns a probe that pings db with a short timeout.
func ReadinessCheck(db Pinger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return db.Ping(ctx)
	}
}
