// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads holoauth configuration from defaults, a YAML file and
// command-line flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/xdg"
)

// Environment variables consulted when the value is not set otherwise.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvSigningKey  = "HOLOAUTH_SIGNING_KEY"
)

// minSigningKeyLen mirrors the issuer's HS256 key requirement.
const minSigningKeyLen = 32

// Upper bounds keep lifetimes well inside time.Duration.
const (
	maxAccessTokenMinutes      = 1440
	maxRefreshTokenDays        = 3650
	maxSweepRetentionHours     = 87600
	defaultSweepRetentionHours = 24
)

// Config is the complete holoauth configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database" json:"database"`
	JWT      JWTConfig      `koanf:"jwt" json:"jwt"`
	Argon2   Argon2Config   `koanf:"argon2" json:"argon2"`
	Server   ServerConfig   `koanf:"server" json:"server"`
	Log      LogConfig      `koanf:"log" json:"log"`

	// Debug exposes error details in HTTP responses. Never enable in production.
	Debug bool `koanf:"debug" json:"debug" jsonschema:"description=Expose error details in HTTP responses"`

	// RevokeOnPasswordChange revokes all refresh tokens when a password changes.
	RevokeOnPasswordChange bool `koanf:"revoke_on_password_change" json:"revoke_on_password_change"`

	// SweepIntervalMinutes runs the expired token sweep periodically while
	// serving. Zero disables it.
	SweepIntervalMinutes int `koanf:"sweep_interval_minutes" json:"sweep_interval_minutes" jsonschema:"minimum=0"`

	// SweepRetentionHours keeps expired refresh tokens this long before a
	// sweep deletes them.
	SweepRetentionHours int `koanf:"sweep_retention_hours" json:"sweep_retention_hours" jsonschema:"minimum=0,maximum=87600"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL             string `koanf:"url" json:"url" jsonschema:"description=PostgreSQL connection URL"`
	MaxConns        int32  `koanf:"max_conns" json:"max_conns" jsonschema:"minimum=0"`
	ConnectAttempts uint64 `koanf:"connect_attempts" json:"connect_attempts" jsonschema:"minimum=1"`
}

// JWTConfig configures access and refresh token issuance.
type JWTConfig struct {
	SigningKey         string `koanf:"signing_key" json:"signing_key" jsonschema:"description=HS256 key of at least 32 bytes"`
	Issuer             string `koanf:"issuer" json:"issuer"`
	Audience           string `koanf:"audience" json:"audience"`
	AccessTokenMinutes int    `koanf:"access_token_minutes" json:"access_token_minutes" jsonschema:"minimum=1,maximum=1440"`
	RefreshTokenDays   int    `koanf:"refresh_token_days" json:"refresh_token_days" jsonschema:"minimum=1,maximum=3650"`
}

// Argon2Config sets the password hashing cost.
type Argon2Config struct {
	Time      uint32 `koanf:"time" json:"time" jsonschema:"minimum=1"`
	MemoryKiB uint32 `koanf:"memory_kib" json:"memory_kib" jsonschema:"minimum=8192"`
	Threads   uint8  `koanf:"threads" json:"threads" jsonschema:"minimum=1"`
}

// ServerConfig holds listen addresses. An empty address disables the listener.
type ServerConfig struct {
	HTTPAddr    string `koanf:"http_addr" json:"http_addr"`
	MetricsAddr string `koanf:"metrics_addr" json:"metrics_addr"`
	HealthAddr  string `koanf:"health_addr" json:"health_addr" jsonschema:"description=gRPC health service address"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format" json:"format" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	p := auth.DefaultArgon2Params()
	return &Config{
		Database: DatabaseConfig{MaxConns: 10, ConnectAttempts: 5},
		JWT: JWTConfig{
			Issuer:             "holoauth",
			Audience:           "holoauth-clients",
			AccessTokenMinutes: int(auth.DefaultAccessTokenTTL / time.Minute),
			RefreshTokenDays:   int(auth.DefaultRefreshTokenTTL / (24 * time.Hour)),
		},
		Argon2: Argon2Config{Time: p.Time, MemoryKiB: p.Memory, Threads: p.Threads},
		Server: ServerConfig{
			HTTPAddr:    "127.0.0.1:8080",
			MetricsAddr: "127.0.0.1:9100",
			HealthAddr:  "",
		},
		Log:                 LogConfig{Format: "json", Level: "info"},
		SweepRetentionHours: defaultSweepRetentionHours,
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"database-url":              "database.url",
	"database-max-conns":        "database.max_conns",
	"jwt-signing-key":           "jwt.signing_key",
	"jwt-issuer":                "jwt.issuer",
	"jwt-audience":              "jwt.audience",
	"access-token-minutes":      "jwt.access_token_minutes",
	"refresh-token-days":        "jwt.refresh_token_days",
	"http-addr":                 "server.http_addr",
	"metrics-addr":              "server.metrics_addr",
	"health-addr":               "server.health_addr",
	"log-format":                "log.format",
	"log-level":                 "log.level",
	"debug":                     "debug",
	"revoke-on-password-change": "revoke_on_password_change",
	"sweep-interval-minutes":    "sweep_interval_minutes",
	"sweep-retention-hours":     "sweep_retention_hours",
}

// RegisterFlags adds the overridable settings to fs, with defaults taken
// from Default.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("database-url", "", "PostgreSQL URL (default: $"+EnvDatabaseURL+")")
	fs.Int32("database-max-conns", d.Database.MaxConns, "maximum pool connections")
	fs.String("jwt-signing-key", "", "HS256 signing key (default: $"+EnvSigningKey+")")
	fs.String("jwt-issuer", d.JWT.Issuer, "JWT iss claim")
	fs.String("jwt-audience", d.JWT.Audience, "JWT aud claim")
	fs.Int("access-token-minutes", d.JWT.AccessTokenMinutes, "access token lifetime in minutes")
	fs.Int("refresh-token-days", d.JWT.RefreshTokenDays, "refresh token lifetime in days")
	fs.String("http-addr", d.Server.HTTPAddr, "HTTP API listen address")
	fs.String("metrics-addr", d.Server.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("health-addr", d.Server.HealthAddr, "gRPC health listen address (empty = disabled)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.Bool("debug", d.Debug, "expose error details in HTTP responses")
	fs.Bool("revoke-on-password-change", d.RevokeOnPasswordChange, "revoke refresh tokens when a password changes")
	fs.Int("sweep-interval-minutes", d.SweepIntervalMinutes, "expired token sweep interval (0 = disabled)")
	fs.Int("sweep-retention-hours", d.SweepRetentionHours, "keep expired refresh tokens this long before sweeping them")
}

// Load builds a Config. path names a YAML file; when empty, the XDG default
// file is read if it exists. Flags that were set on the command line win
// over the file; unset flags only fill keys the file left out.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		if p, err := xdg.ConfigFile(); err == nil {
			path = p
		}
	}
	if path != "" {
		if err := loadFile(k, path, explicit); err != nil {
			return nil, err
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv(EnvDatabaseURL)
	}
	if cfg.JWT.SigningKey == "" {
		cfg.JWT.SigningKey = os.Getenv(EnvSigningKey)
	}
	return cfg, nil
}

func loadFile(k *koanf.Koanf, path string, explicit bool) error {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
	}
	if err := ValidateSchema(data); err != nil {
		return oops.Code("CONFIG_SCHEMA_INVALID").With("path", path).Wrap(err)
	}
	if err := k.Load(file.Provider(path), koanfyaml.Parser()); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

// Validate checks settings that the schema cannot express. Database and
// signing key are only required by commands that use them, so callers pass
// what they need.
func (c *Config) Validate(requireDatabase, requireSigningKey bool) error {
	var problems []string
	if requireDatabase && c.Database.URL == "" {
		problems = append(problems, "database.url is required (or set "+EnvDatabaseURL+")")
	}
	if requireSigningKey && len(c.JWT.SigningKey) < minSigningKeyLen {
		problems = append(problems, "jwt.signing_key must be at least 32 bytes (or set "+EnvSigningKey+")")
	}
	if c.JWT.Issuer == "" {
		problems = append(problems, "jwt.issuer is required")
	}
	if c.JWT.Audience == "" {
		problems = append(problems, "jwt.audience is required")
	}
	if c.JWT.AccessTokenMinutes <= 0 || c.JWT.AccessTokenMinutes > maxAccessTokenMinutes {
		problems = append(problems, fmt.Sprintf("jwt.access_token_minutes must be between 1 and %d", maxAccessTokenMinutes))
	}
	if c.JWT.RefreshTokenDays <= 0 || c.JWT.RefreshTokenDays > maxRefreshTokenDays {
		problems = append(problems, fmt.Sprintf("jwt.refresh_token_days must be between 1 and %d", maxRefreshTokenDays))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		problems = append(problems, "log.format must be 'json' or 'text', got \""+c.Log.Format+"\"")
	}
	if c.SweepIntervalMinutes < 0 {
		problems = append(problems, "sweep_interval_minutes must not be negative")
	}
	if c.SweepRetentionHours < 0 || c.SweepRetentionHours > maxSweepRetentionHours {
		problems = append(problems, fmt.Sprintf("sweep_retention_hours must be between 0 and %d", maxSweepRetentionHours))
	}
	if len(problems) > 0 {
		return oops.Code("CONFIG_INVALID").
			With("problems", problems).
			Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// AccessTTL returns the access token lifetime.
func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.JWT.AccessTokenMinutes) * time.Minute
}

// RefreshTTL returns the refresh token lifetime.
func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWT.RefreshTokenDays) * 24 * time.Hour
}

// SweepInterval returns how often expired tokens are purged while serving.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMinutes) * time.Minute
}

// SweepRetention returns how long expired refresh tokens are kept.
func (c *Config) SweepRetention() time.Duration {
	return time.Duration(c.SweepRetentionHours) * time.Hour
}

// Argon2Params returns the hashing cost as auth parameters.
func (c *Config) Argon2Params() auth.Argon2Params {
	return auth.Argon2Params{Time: c.Argon2.Time, Memory: c.Argon2.MemoryKiB, Threads: c.Argon2.Threads}
}

// IssuerConfig returns the token issuer settings.
func (c *Config) IssuerConfig() auth.IssuerConfig {
	return auth.IssuerConfig{
		SigningKey: []byte(c.JWT.SigningKey),
		Issuer:     c.JWT.Issuer,
		Audience:   c.JWT.Audience,
		AccessTTL:  c.AccessTTL(),
	}
}
