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

// PutReferral stores a single-use code with a bounded lifetime. A zero
// issuedBy (operator-seeded code) is stored as NULL.
func (s *Store) PutReferral(ctx context.Context, code string, issuedBy ulid.ULID, ttl time.Duration) error {
	var issuedByStr *string
	if issuedBy.Compare(ulid.ULID{}) != 0 {
		v := issuedBy.String()
		issuedByStr = &v
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO referrals (code, issued_by, created_at, expires_at)
		VALUES ($1, $2, now(), now() + $3)
	`, code, issuedByStr, ttl)
	if err != nil {
		return oops.Code("REFERRAL_PUT_FAILED").
			With("operation", "insert referral").
			Wrap(err)
	}
	return nil
}

// RedeemReferral atomically deletes the code and returns its issuer. The
// DELETE ... RETURNING makes concurrent redemptions of the same code have
// exactly one winner; expiry is checked on the row the winner got back, so
// an expired code is consumed but still invalid.
func (s *Store) RedeemReferral(ctx context.Context, code string) (ulid.ULID, error) {
	var (
		issuedByStr *string
		expiresAt   time.Time
	)
	err := s.pool.QueryRow(ctx, `
		DELETE FROM referrals WHERE code = $1
		RETURNING issued_by, expires_at
	`, code).Scan(&issuedByStr, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ulid.ULID{}, auth.ErrInvalidReferral
	}
	if err != nil {
		return ulid.ULID{}, oops.Code("REFERRAL_REDEEM_FAILED").
			With("operation", "delete referral").
			Wrap(err)
	}

	if time.Now().After(expiresAt) {
		return ulid.ULID{}, auth.ErrInvalidReferral
	}

	if issuedByStr == nil {
		return ulid.ULID{}, nil
	}
	issuedBy, err := ulid.Parse(*issuedByStr)
	if err != nil {
		return ulid.ULID{}, oops.Code("REFERRAL_INVALID_ISSUER_ID").
			With("operation", "parse issuer id").
			With("issued_by", *issuedByStr).
			Wrap(err)
	}
	return issuedBy, nil
}

// SetReferralCooldown starts the referral-issuing cooldown for a user.
func (s *Store) SetReferralCooldown(ctx context.Context, id ulid.ULID, ttl time.Duration) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE users SET referral_cooldown_until = now() + $2 WHERE id = $1
	`, id.String(), ttl)
	if err != nil {
		return oops.Code("REFERRAL_COOLDOWN_SET_FAILED").
			With("operation", "set referral cooldown").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// InReferralCooldown reports whether the user's cooldown is active.
func (s *Store) InReferralCooldown(ctx context.Context, id ulid.ULID) (bool, error) {
	var until *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT referral_cooldown_until FROM users WHERE id = $1
	`, id.String()).Scan(&until)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, auth.ErrNotFound
	}
	if err != nil {
		return false, oops.Code("REFERRAL_COOLDOWN_GET_FAILED").
			With("operation", "get referral cooldown").
			With("id", id.String()).
			Wrap(err)
	}
	return until != nil && time.Now().Before(*until), nil
}
