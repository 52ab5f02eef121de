// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 sramkeep Contributors

// Package config loads runtime configuration from an optional YAML file
// overlaid with command-line flags. Flags win over the file, the file wins
// over defaults.
package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config is the runtime configuration.
type Config struct {
	// DatabaseURL is the PostgreSQL connection string. Empty selects the
	// in-memory credential store.
	DatabaseURL string `koanf:"database-url"`

	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log-format"`

	// LogLevel is "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log-level"`

	// MetricsAddr is the observability listen address.
	MetricsAddr string `koanf:"metrics-addr"`

	// TokenTTL bounds the lifetime of a session token.
	TokenTTL time.Duration `koanf:"token-ttl"`

	// ReferralTTL bounds the lifetime of an unredeemed referral code.
	ReferralTTL time.Duration `koanf:"referral-ttl"`

	// ReferralCooldown is the wait between referral issues per user.
	ReferralCooldown time.Duration `koanf:"referral-cooldown"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogFormat:        "json",
		LogLevel:         "info",
		MetricsAddr:      "127.0.0.1:9100",
		TokenTTL:         24 * time.Hour,
		ReferralTTL:      7 * 24 * time.Hour,
		ReferralCooldown: 24 * time.Hour,
	}
}

// Load builds a Config from defaults, an optional YAML file at path, and
// an optional flag set. An empty path skips the file; a missing file at an
// explicit path is an error.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, oops.Code("CONFIG_FILE_MISSING").
				With("path", path).
				Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_INVALID").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.TokenTTL <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("field", "token-ttl").
			Errorf("token ttl must be positive")
	}
	if c.ReferralTTL <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("field", "referral-ttl").
			Errorf("referral ttl must be positive")
	}
	if c.ReferralCooldown <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("field", "referral-cooldown").
			Errorf("referral cooldown must be positive")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").
			With("field", "log-format").
			With("value", c.LogFormat).
			Errorf("log format must be json or text")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return oops.Code("CONFIG_INVALID").
			With("field", "log-level").
			With("value", c.LogLevel).
			Errorf("log level must be debug, info, warn, or error")
	}
	return nil
}

// Level maps LogLevel to a slog.Level.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
