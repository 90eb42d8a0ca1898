// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/holoauth/internal/config"
	"github.com/holomush/holoauth/internal/xdg"
)

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and initialize configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write a config file populated with defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			written, err := writeDefaultConfig(path, force)
			if err != nil {
				return err
			}
			cmd.Println("Wrote " + written)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load the configuration and check it is complete",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(true, true); err != nil {
				return err //nolint:wrapcheck // already coded
			}
			cmd.Println("Configuration is valid")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.GenerateSchema()
			if err != nil {
				return err //nolint:wrapcheck // already coded
			}
			cmd.Println(string(schema))
			return nil
		},
	})

	return cmd
}

// writeDefaultConfig writes the default config to path, or to the XDG
// config file when path is empty, and returns the path written.
func writeDefaultConfig(path string, force bool) (string, error) {
	if path == "" {
		var err error
		path, err = xdg.ConfigFile()
		if err != nil {
			return "", err //nolint:wrapcheck // already coded
		}
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", oops.Code("CONFIG_EXISTS").With("path", path).Errorf("config file already exists; use --force to overwrite")
		}
	}
	if err := xdg.EnsureDir(filepath.Dir(path)); err != nil {
		return "", err //nolint:wrapcheck // already coded
	}

	data, err := config.WriteYAML(config.Default())
	if err != nil {
		return "", err //nolint:wrapcheck // already coded
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", oops.Code("CONFIG_WRITE_FAILED").With("path", path).Wrap(err)
	}
	return path, nil
}
