// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads signon configuration from flags, an optional YAML file
// and the environment.
package config

import (
	"errors"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/signon/internal/auth"
	"github.com/holomush/signon/internal/xdg"
)

// Session store backends.
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Environment variables read by Load.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvRedisURL    = "REDIS_URL"
)

// Config is the complete service configuration. Keys are the flag names.
type Config struct {
	HTTPAddr    string `koanf:"http-addr" jsonschema:"description=Listen address of the sign-in HTTP server"`
	MetricsAddr string `koanf:"metrics-addr" jsonschema:"description=Listen address of the metrics and health server (empty disables it)"`
	LogFormat   string `koanf:"log-format" jsonschema:"enum=json,enum=text"`
	LogLevel    string `koanf:"log-level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`

	SessionStore  string        `koanf:"session-store" jsonschema:"enum=postgres,enum=redis"`
	SessionTTL    time.Duration `koanf:"session-ttl" jsonschema:"description=Lifetime of a new session, e.g. 720h"`
	SweepInterval time.Duration `koanf:"sweep-interval" jsonschema:"description=Interval between expired-session sweeps (0 disables)"`

	CookieName     string `koanf:"cookie-name" jsonschema:"minLength=1"`
	CookieSecure   bool   `koanf:"cookie-secure"`
	CookieSameSite string `koanf:"cookie-same-site" jsonschema:"enum=lax,enum=strict,enum=none"`
	CookiePath     string `koanf:"cookie-path"`

	HashAlgorithm    string `koanf:"hash-algorithm" jsonschema:"enum=pbkdf2-sha512,enum=argon2id"`
	PBKDF2Iterations int    `koanf:"pbkdf2-iterations" jsonschema:"minimum=100000"`

	RedirectTarget  string        `koanf:"redirect-target"`
	RequestTimeout  time.Duration `koanf:"request-timeout"`
	UniformFailures bool          `koanf:"uniform-failures" jsonschema:"description=Present an unknown email exactly like a wrong password"`
	AutoMigrate     bool          `koanf:"auto-migrate"`

	DatabaseURL string `koanf:"-"`
	RedisURL    string `koanf:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr:         "127.0.0.1:8080",
		MetricsAddr:      "127.0.0.1:9100",
		LogFormat:        "json",
		LogLevel:         "info",
		SessionStore:     StorePostgres,
		SessionTTL:       auth.DefaultSessionTTL,
		SweepInterval:    time.Hour,
		CookieName:       auth.DefaultCookieName,
		CookieSecure:     true,
		CookieSameSite:   auth.SameSiteLax,
		CookiePath:       "/",
		HashAlgorithm:    auth.AlgorithmPBKDF2SHA512,
		PBKDF2Iterations: auth.DefaultPBKDF2Iterations,
		RedirectTarget:   auth.DefaultRedirectTarget,
		RequestTimeout:   auth.DefaultTimeout,
		UniformFailures:  true,
	}
}

// RegisterFlags adds one flag per key to fs, defaulted from Default.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("http-addr", d.HTTPAddr, "sign-in HTTP listen address")
	fs.String("metrics-addr", d.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", d.LogFormat, "log format (json or text)")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.String("session-store", d.SessionStore, "session store backend (postgres or redis)")
	fs.Duration("session-ttl", d.SessionTTL, "lifetime of new sessions")
	fs.Duration("sweep-interval", d.SweepInterval, "interval between expired-session sweeps (0 = disabled)")
	fs.String("cookie-name", d.CookieName, "session cookie name")
	fs.Bool("cookie-secure", d.CookieSecure, "set the Secure flag on the session cookie")
	fs.String("cookie-same-site", d.CookieSameSite, "session cookie SameSite (lax, strict, none)")
	fs.String("cookie-path", d.CookiePath, "session cookie path")
	fs.String("hash-algorithm", d.HashAlgorithm, "password hash algorithm (pbkdf2-sha512 or argon2id)")
	fs.Int("pbkdf2-iterations", d.PBKDF2Iterations, "PBKDF2 iteration count")
	fs.String("redirect-target", d.RedirectTarget, "where successful sign-ins are redirected")
	fs.Duration("request-timeout", d.RequestTimeout, "upper bound on a single sign-in attempt")
	fs.Bool("uniform-failures", d.UniformFailures, "present unknown emails like wrong passwords")
	fs.Bool("auto-migrate", d.AutoMigrate, "apply database migrations on start")
}

// DefaultPath returns the config file read when --config is not given.
func DefaultPath() string {
	return xdg.ConfigFile("config.yaml")
}

// Load builds a Config. Values come from flag defaults, then the YAML file at
// path, then flags the user set explicitly. When explicit is false a missing
// file is skipped. DATABASE_URL and REDIS_URL come from the environment.
func Load(fs *pflag.FlagSet, path string, explicit bool) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
		switch {
		case errors.Is(err, os.ErrNotExist) && !explicit:
		case err != nil:
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		default:
			if err := ValidateYAML(data); err != nil {
				return nil, oops.Code("CONFIG_SCHEMA_INVALID").With("path", path).Wrap(err)
			}
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
			}
		}
	}

	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	cfg.DatabaseURL = os.Getenv(EnvDatabaseURL)
	cfg.RedisURL = os.Getenv(EnvRedisURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the semantic rules the schema cannot express.
func (c *Config) Validate() error {
	invalid := func(key string, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
	}

	if c.HTTPAddr == "" {
		return invalid("http-addr", "http-addr is required")
	}
	if !slices.Contains([]string{"json", "text"}, c.LogFormat) {
		return invalid("log-format", "log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.LogLevel)) {
		return invalid("log-level", "unknown log-level %q", c.LogLevel)
	}
	if c.SessionStore != StorePostgres && c.SessionStore != StoreRedis {
		return invalid("session-store", "session-store must be %q or %q, got %q", StorePostgres, StoreRedis, c.SessionStore)
	}
	if c.SessionTTL <= 0 {
		return invalid("session-ttl", "session-ttl must be positive")
	}
	if c.SweepInterval < 0 {
		return invalid("sweep-interval", "sweep-interval cannot be negative")
	}
	if c.RequestTimeout < 0 {
		return invalid("request-timeout", "request-timeout cannot be negative")
	}
	if err := c.Cookie().Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "cookie").Wrap(err)
	}
	if _, err := auth.NewHasher(c.HashAlgorithm, c.PBKDF2Iterations); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "hash-algorithm").Wrap(err)
	}
	if !strings.HasPrefix(c.RedirectTarget, "/") || strings.HasPrefix(c.RedirectTarget, "//") {
		return invalid("redirect-target", "redirect-target must be a local path, got %q", c.RedirectTarget)
	}
	return nil
}

// Cookie returns the session cookie configuration.
func (c *Config) Cookie() auth.CookieConfig {
	return auth.CookieConfig{
		Name:     c.CookieName,
		Path:     c.CookiePath,
		Secure:   c.CookieSecure,
		SameSite: c.CookieSameSite,
	}
}
