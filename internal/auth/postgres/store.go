// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 sramkeep Contributors

// Package postgres implements auth.CredentialStore on PostgreSQL. Every
// logical operation is a single statement, so the atomicity the contract
// demands comes from the database rather than from transactions: handle
// reservation rides on a unique index, referral redemption on
// DELETE ... RETURNING.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// poolIface abstracts pgxpool.Pool so unit tests can substitute pgxmock.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Store implements auth.CredentialStore using PostgreSQL.
type Store struct {
	pool poolIface
}

// NewStore creates a Store over an existing pool.
func NewStore(pool poolIface) *Store {
	return &Store{pool: pool}
}

// Connect creates a connection pool and verifies connectivity, retrying
// the initial ping with exponential backoff. Only connection establishment
// is retried; store operations themselves never are.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "create pool").
			Wrap(err)
	}

	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := pool.Ping(ctx); pingErr != nil {
			return retry.RetryableError(pingErr)
		}
		return nil
	}); err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			Wrap(err)
	}

	return pool, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}
