// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

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

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/config"
	"github.com/holomush/holoauth/internal/httpapi"
	"github.com/holomush/holoauth/internal/logging"
	"github.com/holomush/holoauth/internal/observability"
	"github.com/holomush/holoauth/pkg/errutil"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication API",
		Long: `Start the HTTP authentication API together with the metrics endpoint
and, when configured, the gRPC health service.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, autoMigrate, cmd, nil)
		},
	}

	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "apply pending migrations before serving")

	return cmd
}

// runServeWithDeps starts the service with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, autoMigrate bool, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := cfg.Validate(true, true); err != nil {
		return err //nolint:wrapcheck // already coded
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return err
	}

	if autoMigrate {
		if err := runAutoMigration(cfg.Database.URL, deps.MigratorFactory); err != nil {
			return err
		}
	}

	backend, err := deps.BackendFactory(ctx, cfg)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "open credential store").Wrap(err)
	}
	if backend.Close != nil {
		defer backend.Close()
	}
	logger.Info("connected to credential store")

	ready := readiness(backend)
	obsServer := deps.ObservabilityServerFactory(cfg.Server.MetricsAddr, ready)
	metrics := obsServer.Metrics()

	svc, issuer, err := buildService(cfg, backend, logger, metrics)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Server.MetricsAddr != "" {
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("SERVER_START_FAILED").With("server", "observability").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		defer stopWithTimeout("observability", obsServer.Stop)
	}

	if cfg.Server.HealthAddr != "" {
		healthServer := deps.HealthServerFactory(cfg.Server.HealthAddr, ready)
		healthErrChan, err := healthServer.Start()
		if err != nil {
			return oops.Code("SERVER_START_FAILED").With("server", "grpc-health").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, healthErrChan, "grpc-health")
		defer healthServer.Stop()
	}

	listener, err := deps.ListenerFactory("tcp", cfg.Server.HTTPAddr)
	if err != nil {
		return oops.Code("SERVER_START_FAILED").With("server", "http").With("addr", cfg.Server.HTTPAddr).Wrap(err)
	}

	api := httpapi.New(svc, issuer,
		httpapi.WithLogger(logger),
		httpapi.WithRequestRecorder(metrics),
		httpapi.WithDebug(cfg.Debug),
	)
	httpServer := &http.Server{
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpErrChan := make(chan error, 1)
	go func() {
		defer close(httpErrChan)
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			httpErrChan <- serveErr
		}
	}()

	if interval := cfg.SweepInterval(); interval > 0 {
		go runSweeper(ctx, svc, metrics, interval, cfg.SweepRetention(), logger)
	}

	if cmd != nil {
		cmd.Println("holoauth serving on " + listener.Addr().String())
	}
	logger.Info("holoauth ready",
		"http_addr", listener.Addr().String(),
		"metrics_addr", cfg.Server.MetricsAddr,
		"health_addr", cfg.Server.HealthAddr,
	)
	if deps.OnReady != nil {
		deps.OnReady(listener.Addr().String())
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err, ok := <-httpErrChan:
		if ok && err != nil {
			serveErr = oops.Code("SERVER_FAILED").With("server", "http").Wrap(err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping http server", "error", err)
	}

	logger.Info("shutdown complete")
	return serveErr
}

func setupLogging(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err //nolint:wrapcheck // already coded
	}
	return logging.SetDefault("holoauth", version, cfg.Log.Format, level), nil
}

// buildService wires the hasher, issuer and service from cfg.
func buildService(cfg *config.Config, backend *Backend, logger *slog.Logger, recorder auth.Recorder, extra ...auth.Option) (*auth.Service, *auth.JWTIssuer, error) {
	issuer, err := auth.NewJWTIssuer(cfg.IssuerConfig())
	if err != nil {
		return nil, nil, oops.With("operation", "create token issuer").Wrap(err)
	}
	opts := []auth.Option{
		auth.WithLogger(logger),
		auth.WithRefreshTTL(cfg.RefreshTTL()),
		auth.WithRevokeOnPasswordChange(cfg.RevokeOnPasswordChange),
	}
	if recorder != nil {
		opts = append(opts, auth.WithRecorder(recorder))
	}
	opts = append(opts, extra...)
	svc, err := auth.NewService(backend.Users, backend.Tokens,
		auth.NewArgon2idHasherWithParams(cfg.Argon2Params()), issuer, opts...)
	if err != nil {
		return nil, nil, oops.With("operation", "create auth service").Wrap(err)
	}
	return svc, issuer, nil
}

func readiness(backend *Backend) observability.ReadinessChecker {
	return func(ctx context.Context) bool {
		if backend.Ping == nil {
			return true
		}
		return backend.Ping(ctx) == nil
	}
}

// runSweeper purges refresh tokens expired longer than retention every
// interval until ctx is done.
func runSweeper(ctx context.Context, svc *auth.Service, metrics *observability.Metrics, interval, retention time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpiredTokens(ctx, retention)
			if err != nil {
				errutil.LogErrorContext(ctx, logger, "expired token sweep failed", err)
				continue
			}
			if metrics != nil {
				metrics.RecordSwept(n)
			}
		}
	}
}

// monitorServerErrors cancels ctx when a background server reports an error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, name string) {
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok && err != nil {
			slog.Error("server failed", "server", name, "error", err)
			cancel()
		}
	}
}

func stopWithTimeout(name string, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		slog.Warn("error stopping server", "server", name, "error", err)
	}
}
