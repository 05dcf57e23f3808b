// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/signon/internal/observability"
	"github.com/holomush/signon/internal/web"
)

const (
	shutdownTimeout  = 5 * time.Second
	readinessTimeout = 2 * time.Second
)

func newServeCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the sign-in HTTP server",
		Long: `Start the sign-in HTTP server, the metrics and health server and the
expired-session sweeper. Stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, deps)
		},
	}
}

func runServe(ctx context.Context, cmd *cobra.Command, deps *Deps) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := setupLogging(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	logger.Info("starting signon",
		"http_addr", cfg.HTTPAddr,
		"session_store", cfg.SessionStore,
		"hash_algorithm", cfg.HashAlgorithm,
	)

	if cfg.AutoMigrate {
		if err := autoMigrate(cfg.DatabaseURL, deps.MigratorFactory, logger); err != nil {
			return err
		}
	}

	backend, err := deps.BackendFactory(ctx, cfg)
	if err != nil {
		return oops.Code("BACKEND_OPEN_FAILED").With("operation", "open backend").Wrap(err)
	}
	defer func() {
		if closeErr := backend.Close(); closeErr != nil {
			logger.Warn("error closing backend", "error", closeErr)
		}
	}()

	obsServer := observability.NewServer(cfg.MetricsAddr, readiness(backend))
	metrics := obsServer.Metrics()

	svc, err := newService(cfg, backend, logger, metrics)
	if err != nil {
		return err
	}
	webServer, err := web.NewServer(svc,
		web.WithLogger(logger),
		web.WithRequestObserver(metrics),
		web.WithRequestTimeout(cfg.RequestTimeout),
		web.WithServiceName(serviceName),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	webErrCh, err := webServer.Start(cfg.HTTPAddr)
	if err != nil {
		return err
	}
	go monitorServerErrors(ctx, cancel, webErrCh, "web")

	if cfg.MetricsAddr != "" {
		obsErrCh, err := obsServer.Start()
		if err != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			if stopErr := webServer.Shutdown(shutdownCtx); stopErr != nil {
				logger.Warn("failed to stop web server during cleanup", "error", stopErr)
			}
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
	}

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		if cfg.SweepInterval <= 0 {
			return
		}
		if err := svc.Issuer().RunSweeper(ctx, cfg.SweepInterval, logger, metrics); err != nil {
			logger.Error("session sweeper stopped", "error", err)
		}
	}()

	cmd.Println("signon started")
	logger.Info("signon ready", "http_addr", webServer.Addr())

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := webServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping web server", "error", err)
	}
	if err := obsServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
	<-sweepDone

	logger.Info("shutdown complete")
	return nil
}

// readiness reports ready while every backing service answers a ping.
func readiness(backend *Backend) observability.ReadinessChecker {
	return func() bool {
		if backend.Ping == nil {
			return true
		}
		ctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
		defer cancel()
		return backend.Ping(ctx) == nil
	}
}

// autoMigrate applies pending migrations before the server starts.
func autoMigrate(databaseURL string, factory func(string) (Migrator, error), logger *slog.Logger) error {
	m, err := factory(databaseURL)
	if err != nil {
		return oops.Code("AUTO_MIGRATE_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr)
		}
	}()

	if err := m.Up(); err != nil {
		return oops.Code("AUTO_MIGRATE_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	logger.Info("database migrations applied")
	return nil
}

// monitorServerErrors cancels ctx when a server reports a serve error. It
// returns when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown", "server", serverName, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
