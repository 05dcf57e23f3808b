// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"

	"github.com/samber/oops"

	"github.com/holomush/signon/internal/auth"
	authpg "github.com/holomush/signon/internal/auth/postgres"
	authredis "github.com/holomush/signon/internal/auth/redis"
	"github.com/holomush/signon/internal/config"
	"github.com/holomush/signon/internal/store"
)

// Deps contains injectable dependencies for the commands. Nil fields use
// their default implementations.
type Deps struct {
	// BackendFactory opens the user repository and session store.
	// Default: openBackend
	BackendFactory func(ctx context.Context, cfg *config.Config) (*Backend, error)

	// MigratorFactory creates a migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.BackendFactory == nil {
		out.BackendFactory = openBackend
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(databaseURL string) (Migrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	return &out
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	Close() error
}

// Backend holds the persistence used by sign-in.
type Backend struct {
	Users    auth.UserRepository
	Sessions auth.SessionStore
	// Ping reports whether every backing service answers.
	Ping  func(ctx context.Context) error
	close []func() error
}

// Close releases every connection held by the backend.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.close) - 1; i >= 0; i-- {
		errs = append(errs, b.close[i]())
	}
	return errors.Join(errs...)
}

// openBackend connects to Postgres and, when configured, Redis.
func openBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	if cfg.DatabaseURL == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("%s environment variable is required", config.EnvDatabaseURL)
	}

	pool, err := store.Connect(ctx, cfg.DatabaseURL, store.ConnectOptions{MaxRetries: 5})
	if err != nil {
		return nil, err
	}

	b := &Backend{
		Users:    authpg.NewUserRepository(pool),
		Sessions: authpg.NewSessionStore(pool),
		Ping:     pool.Ping,
		close:    []func() error{func() error { pool.Close(); return nil }},
	}

	if cfg.SessionStore != config.StoreRedis {
		return b, nil
	}

	if cfg.RedisURL == "" {
		_ = b.Close()
		return nil, oops.Code("CONFIG_INVALID").Errorf("%s environment variable is required for the redis session store", config.EnvRedisURL)
	}
	client, err := authredis.NewClient(cfg.RedisURL)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Sessions = authredis.NewSessionStore(client)
	b.close = append(b.close, client.Close)
	b.Ping = func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return oops.Code("DB_PING_FAILED").Wrap(err)
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return oops.Code("REDIS_PING_FAILED").Wrap(err)
		}
		return nil
	}
	return b, nil
}
