// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/config"
)

// sweepBackendFactory is swapped in tests.
var sweepBackendFactory = postgresBackend

// NewSweepCmd creates the sweep subcommand.
func NewSweepCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired refresh tokens",
		Long: `Delete refresh tokens whose expiry lies further in the past than
--older-than (default: sweep_retention_hours). Spent and revoked tokens are
kept until they expire.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("older-than") {
				olderThan = cfg.SweepRetention()
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			n, err := runSweep(ctx, cfg, olderThan, time.Now())
			if err != nil {
				return err
			}
			cmd.Printf("Deleted %d expired refresh token(s)\n", n)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "only delete tokens expired longer than this (overrides sweep_retention_hours)")

	return cmd
}

func runSweep(ctx context.Context, cfg *config.Config, olderThan time.Duration, now time.Time) (int64, error) {
	if err := cfg.Validate(true, true); err != nil {
		return 0, err //nolint:wrapcheck // already coded
	}
	logger, err := setupLogging(cfg)
	if err != nil {
		return 0, err
	}

	backend, err := sweepBackendFactory(ctx, cfg)
	if err != nil {
		return 0, oops.Code("DB_CONNECT_FAILED").With("operation", "open credential store").Wrap(err)
	}
	if backend.Close != nil {
		defer backend.Close()
	}

	svc, _, err := buildService(cfg, backend, logger, nil, auth.WithClock(func() time.Time { return now }))
	if err != nil {
		return 0, err
	}
	n, err := svc.PurgeExpiredTokens(ctx, olderThan)
	if err != nil {
		return 0, oops.With("operation", "sweep expired refresh tokens").Wrap(err)
	}
	return n, nil
}
