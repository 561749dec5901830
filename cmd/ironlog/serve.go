// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/ironlog/ironlog/internal/auth"
	"github.com/ironlog/ironlog/internal/config"
	"github.com/ironlog/ironlog/internal/observability"
	"github.com/ironlog/ironlog/internal/web"
	"github.com/ironlog/ironlog/pkg/errutil"
)

const shutdownTimeout = 10 * time.Second

// serveOptions holds flags local to the serve command.
type serveOptions struct {
	autoMigrate   bool
	sweepInterval time.Duration
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long: `Start the HTTP server for the IronLog web app and its auth API,
plus the metrics and health listener when metrics.addr is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, opts, cmd, logger, nil)
		},
	}

	cmd.Flags().BoolVar(&opts.autoMigrate, "auto-migrate", true, "apply pending migrations before serving (PostgreSQL only)")
	cmd.Flags().DurationVar(&opts.sweepInterval, "sweep-interval", time.Hour, "how often to delete expired sessions (0 disables)")

	return cmd
}

// runServeWithDeps starts the server with injectable dependencies and blocks
// until ctx is cancelled, a signal arrives or a listener fails.
func runServeWithDeps(ctx context.Context, cfg config.Config, opts *serveOptions, cmd *cobra.Command, logger *slog.Logger, deps *ServeDeps) error {
	deps = deps.withDefaults()

	if opts.autoMigrate && cfg.Database.URL != "" {
		if err := deps.MigrateUp(cfg.Database.URL); err != nil {
			return oops.With("operation", "auto-migrate").Wrap(err)
		}
		logger.InfoContext(ctx, "database schema up to date")
	}

	b, err := deps.BackendOpener(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, b.ready)
		metrics = obsServer.Metrics()
	}

	svcs, err := newServices(cfg, b, logger)
	if err != nil {
		return err
	}
	if cfg.Bootstrap().Enabled() {
		if _, err := auth.EnsureAdminBootstrap(ctx, b.users, svcs.hasher, cfg.Bootstrap()); err != nil {
			// Login retries the bootstrap.
			errutil.LogErrorContext(ctx, logger, "admin bootstrap at startup failed", err)
		}
	}

	srv, err := web.New(svcs.auth, svcs.invites, web.Options{
		Secure:  cfg.IsProduction(),
		WebDir:  cfg.HTTP.WebDir,
		Metrics: metrics,
		Logger:  logger,
		Ready:   b.ready,
	})
	if err != nil {
		return err
	}

	listener, err := deps.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return oops.Code("HTTP_LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}
	httpServer := srv.HTTPServer(cfg.HTTP.Addr)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if obsServer != nil {
		obsErrCh, err := obsServer.Start()
		if err != nil {
			_ = listener.Close()
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		logger.InfoContext(ctx, "observability server started", "addr", obsServer.Addr())
	}

	if opts.sweepInterval > 0 {
		go runSessionSweeper(ctx, svcs.sessions, opts.sweepInterval, metrics, logger)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	cmd.Println("IronLog listening on", listener.Addr().String())
	logger.InfoContext(ctx, "web server ready",
		"addr", listener.Addr().String(),
		"environment", cfg.Environment,
		"secure_cookies", cfg.IsProduction())

	var serveErr error
	select {
	case err := <-errCh:
		serveErr = oops.Code("HTTP_SERVE_FAILED").Wrap(err)
	case <-ctx.Done():
		logger.InfoContext(ctx, "shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping web server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return serveErr
}

// monitorServerErrors cancels ctx when a background server reports an error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, name string) {
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			slog.Error("server failed", "server", name, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}

// runSessionSweeper deletes expired sessions every interval until ctx ends.
func runSessionSweeper(ctx context.Context, sessions *auth.Sessions, interval time.Duration, metrics *observability.Metrics, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepOnce(ctx, sessions, metrics, logger)
		}
	}
}

func sweepOnce(ctx context.Context, sessions *auth.Sessions, metrics *observability.Metrics, logger *slog.Logger) {
	n, err := sessions.SweepExpired(ctx)
	if err != nil {
		errutil.LogErrorContext(ctx, logger, "session sweep failed", err)
		return
	}
	metrics.AddSessionsSwept(n)
	if n > 0 {
		logger.InfoContext(ctx, "expired sessions removed", "count", n)
	}
}
