// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"net"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/auth/postgres"
	"github.com/holomush/holoauth/internal/config"
	"github.com/holomush/holoauth/internal/observability"
	"github.com/holomush/holoauth/internal/store"
)

// Backend is the credential store the service runs against.
type Backend struct {
	Users  auth.UserRepository
	Tokens auth.RefreshTokenRepository

	// Ping reports whether the store is reachable. Nil means always ready.
	Ping func(ctx context.Context) error

	// Close releases the store. May be nil.
	Close func()
}

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// BackendFactory opens the credential store.
	// Default: PostgreSQL via store.Connect
	BackendFactory func(ctx context.Context, cfg *config.Config) (*Backend, error)

	// MigratorFactory creates a migrator for auto-migration.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// HealthServerFactory creates the gRPC health server.
	// Default: observability.NewHealthServer
	HealthServerFactory func(addr string, readinessChecker observability.ReadinessChecker) HealthServer

	// ListenerFactory creates the HTTP API listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)

	// OnReady is called with the HTTP API address once serving. May be nil.
	OnReady func(httpAddr string)
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// HealthServer interface wraps the methods used from observability.HealthServer.
type HealthServer interface {
	Start() (<-chan error, error)
	Stop()
	Addr() string
}

// Migrator interface wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	Status() (*store.MigrationStatus, error)
	Close() error
}

// postgresBackend connects to PostgreSQL and builds the repositories.
func postgresBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	pool, err := store.Connect(ctx, cfg.Database.URL, store.PoolConfig{
		MaxConns:        cfg.Database.MaxConns,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		//nolint:wrapcheck // store errors are already coded
		return nil, err
	}
	return &Backend{
		Users:  postgres.NewUserRepository(pool),
		Tokens: postgres.NewRefreshTokenRepository(pool),
		Ping:   pool.Ping,
		Close:  pool.Close,
	}, nil
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.BackendFactory == nil {
		out.BackendFactory = postgresBackend
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = newStoreMigrator
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker, observability.WithBuildInfo(version))
		}
	}
	if out.HealthServerFactory == nil {
		out.HealthServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) HealthServer {
			return observability.NewHealthServer(addr, readinessChecker, 0)
		}
	}
	if out.ListenerFactory == nil {
		out.ListenerFactory = net.Listen
	}
	return &out
}

func newStoreMigrator(databaseURL string) (Migrator, error) {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		//nolint:wrapcheck // store errors are already coded
		return nil, err
	}
	return m, nil
}
