// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 sramkeep Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/sramkeep/sramkeep/internal/auth"
)

// SetActiveToken replaces the user's active token hash. The overwrite is
// what enforces the single-active-session rule: the previous token stops
// matching and its holder is logged out on their next check.
func (s *Store) SetActiveToken(ctx context.Context, id ulid.ULID, tokenHash string, ttl time.Duration) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE users SET token_hash = $2, token_expires_at = now() + $3 WHERE id = $1
	`, id.String(), tokenHash, ttl)
	if err != nil {
		return oops.Code("TOKEN_SET_FAILED").
			With("operation", "set active token").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// GetActiveToken returns the stored token hash and remaining lifetime. An
// elapsed or absent token reads as ErrNotFound, which is how TTL gets
// enforced at verification time.
func (s *Store) GetActiveToken(ctx context.Context, id ulid.ULID) (string, time.Duration, error) {
	var (
		tokenHash *string
		expiresAt *time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT token_hash, token_expires_at FROM users WHERE id = $1
	`, id.String()).Scan(&tokenHash, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", 0, auth.ErrNotFound
	}
	if err != nil {
		return "", 0, oops.Code("TOKEN_GET_FAILED").
			With("operation", "get active token").
			With("id", id.String()).
			Wrap(err)
	}

	if tokenHash == nil || *tokenHash == "" || expiresAt == nil {
		return "", 0, auth.ErrNotFound
	}
	remaining := time.Until(*expiresAt)
	if remaining <= 0 {
		return "", 0, auth.ErrNotFound
	}
	return *tokenHash, remaining, nil
}

// ClearActiveToken removes the user's active token. Clearing an unknown
// id or a user with no token is a no-op.
func (s *Store) ClearActiveToken(ctx context.Context, id ulid.ULID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET token_hash = NULL, token_expires_at = NULL WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("TOKEN_CLEAR_FAILED").
			With("operation", "clear active token").
			With("id", id.String()).
			Wrap(err)
	}
	return nil
}
