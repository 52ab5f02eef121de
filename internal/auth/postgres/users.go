// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 sramkeep Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/sramkeep/sramkeep/internal/auth"
)

// ReserveHandle atomically inserts handle -> new id. The unique index on
// LOWER(handle) arbitrates concurrent reservations: the loser's INSERT
// fails with a unique violation, which maps to ErrHandleTaken. The row is
// created with an empty password hash; SetPasswordHash completes it.
func (s *Store) ReserveHandle(ctx context.Context, handle string, referredBy ulid.ULID) (ulid.ULID, error) {
	id := ulid.Make()

	var referredByStr *string
	if referredBy.Compare(ulid.ULID{}) != 0 {
		v := referredBy.String()
		referredByStr = &v
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, handle, password_hash, joined_at, referred_by)
		VALUES ($1, $2, '', now(), $3)
	`, id.String(), handle, referredByStr)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ulid.ULID{}, auth.ErrHandleTaken
		}
		return ulid.ULID{}, oops.Code("USER_RESERVE_FAILED").
			With("operation", "insert user").
			With("handle", handle).
			Wrap(err)
	}
	return id, nil
}

// GetUserByHandle retrieves a user by handle (case-insensitive).
func (s *Store) GetUserByHandle(ctx context.Context, handle string) (*auth.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, handle, password_hash, joined_at, referred_by
		FROM users
		WHERE LOWER(handle) = LOWER($1)
	`, handle)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_HANDLE_FAILED").
			With("operation", "get user by handle").
			With("handle", handle).
			Wrap(err)
	}
	return user, nil
}

// GetUserByID retrieves a user by id.
func (s *Store) GetUserByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, handle, password_hash, joined_at, referred_by
		FROM users
		WHERE id = $1
	`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// SetPasswordHash stores the password hash for a reserved id.
func (s *Store) SetPasswordHash(ctx context.Context, id ulid.ULID, hash string) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2 WHERE id = $1
	`, id.String(), hash)
	if err != nil {
		return oops.Code("USER_SET_PASSWORD_FAILED").
			With("operation", "update password hash").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// GetPasswordHash returns the stored hash. An empty hash means the signup
// never completed; that reads as ErrNotFound, same as an unknown id.
func (s *Store) GetPasswordHash(ctx context.Context, id ulid.ULID) (string, error) {
	var hash string
	err := s.pool.QueryRow(ctx, `
		SELECT password_hash FROM users WHERE id = $1
	`, id.String()).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", auth.ErrNotFound
	}
	if err != nil {
		return "", oops.Code("USER_GET_PASSWORD_FAILED").
			With("operation", "get password hash").
			With("id", id.String()).
			Wrap(err)
	}
	if hash == "" {
		return "", auth.ErrNotFound
	}
	return hash, nil
}

// scanUser scans a single row into a User. Callers are responsible for
// handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr         string
		handle        string
		passwordHash  string
		joinedAt      time.Time
		referredByStr *string
	)

	err := row.Scan(&idStr, &handle, &passwordHash, &joinedAt, &referredByStr)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", idStr).
			Wrap(err)
	}

	var referredBy *ulid.ULID
	if referredByStr != nil {
		parsed, err := ulid.Parse(*referredByStr)
		if err != nil {
			return nil, oops.Code("USER_INVALID_REFERRER_ID").
				With("operation", "parse referrer id").
				With("referred_by", *referredByStr).
				Wrap(err)
		}
		referredBy = &parsed
	}

	return &auth.User{
		ID:           id,
		Handle:       handle,
		PasswordHash: passwordHash,
		JoinedAt:     joinedAt,
		ReferredBy:   referredBy,
	}, nil
}

// Compile-time interface check.
var _ auth.CredentialStore = (*Store)(nil)
