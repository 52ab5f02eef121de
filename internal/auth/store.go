// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 sramkeep Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// CredentialStore is the sole synchronization point of the subsystem. All
// writes are visible immediately and there is no rollback; callers order
// their writes so that a crash mid-flow leaves at worst an already-redeemed
// referral code or a reserved-but-passwordless handle.
//
// Implementations must make ReserveHandle and RedeemReferral atomic with
// respect to concurrent calls for the same handle or code: exactly one
// caller wins, the rest observe ErrHandleTaken / ErrInvalidReferral.
type CredentialStore interface {
	// ReserveHandle atomically inserts handle -> new id if the handle is
	// absent (case-insensitive) and returns the assigned id. Returns
	// ErrHandleTaken if any live id already owns the handle. ReferredBy
	// and the join timestamp are recorded with the reservation; the
	// password hash is set separately by SetPasswordHash.
	ReserveHandle(ctx context.Context, handle string, referredBy ulid.ULID) (ulid.ULID, error)

	// GetUserByHandle retrieves a user by handle (case-insensitive).
	// Returns ErrNotFound if the handle is unknown.
	GetUserByHandle(ctx context.Context, handle string) (*User, error)

	// GetUserByID retrieves a user by id. Returns ErrNotFound if absent.
	GetUserByID(ctx context.Context, id ulid.ULID) (*User, error)

	// SetPasswordHash stores the password hash for a reserved id,
	// completing the account. Returns ErrNotFound for an unknown id.
	SetPasswordHash(ctx context.Context, id ulid.ULID, hash string) error

	// GetPasswordHash returns the stored password hash. Returns
	// ErrNotFound for an unknown id or for a reservation whose signup
	// never completed (empty hash).
	GetPasswordHash(ctx context.Context, id ulid.ULID) (string, error)

	// PutReferral stores a single-use referral code with a bounded
	// lifetime.
	PutReferral(ctx context.Context, code string, issuedBy ulid.ULID, ttl time.Duration) error

	// RedeemReferral atomically deletes the code and returns the issuing
	// user id. A code already redeemed, expired, or unknown yields
	// ErrInvalidReferral; concurrent redemptions of the same code have
	// exactly one winner.
	RedeemReferral(ctx context.Context, code string) (ulid.ULID, error)

	// SetReferralCooldown starts the referral-issuing cooldown for a user.
	SetReferralCooldown(ctx context.Context, id ulid.ULID, ttl time.Duration) error

	// InReferralCooldown reports whether the user's cooldown is active.
	InReferralCooldown(ctx context.Context, id ulid.ULID) (bool, error)

	// SetActiveToken stores the hash of the single active session token
	// for a user, replacing any previous token. Returns ErrNotFound for
	// an unknown id.
	SetActiveToken(ctx context.Context, id ulid.ULID, tokenHash string, ttl time.Duration) error

	// GetActiveToken returns the stored token hash and its remaining
	// lifetime. Returns ErrNotFound if the user has no active token or
	// the token's TTL has elapsed.
	GetActiveToken(ctx context.Context, id ulid.ULID) (tokenHash string, remaining time.Duration, err error)

	// ClearActiveToken removes the active token for a user. Clearing a
	// user with no active token is not an error.
	ClearActiveToken(ctx context.Context, id ulid.ULID) error
}
