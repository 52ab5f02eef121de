// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 sramkeep Contributors

package auth

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Handle and password validation constraints.
const (
	MinHandleLength   = 3
	MaxHandleLength   = 32
	MinPasswordLength = 8
)

// User represents a registered account.
//
// ID and Handle are immutable after signup. PasswordHash is empty for a
// handle that was reserved but whose signup never completed; such a user
// is not login-capable and is indistinguishable from an unknown handle
// during login.
type User struct {
	ID           ulid.ULID
	Handle       string
	PasswordHash string
	JoinedAt     time.Time
	ReferredBy   *ulid.ULID // nil for accounts seeded outside the referral flow
}

// ValidateHandle validates a handle against registration rules.
func ValidateHandle(handle string) error {
	if len(handle) < MinHandleLength {
		return oops.Code(CodeInvalidInput).
			With("field", "handle").
			With("min", MinHandleLength).
			Errorf("Handle must be at least %d characters!", MinHandleLength)
	}
	if len(handle) > MaxHandleLength {
		return oops.Code(CodeInvalidInput).
			With("field", "handle").
			With("max", MaxHandleLength).
			Errorf("Handle must be at most %d characters!", MaxHandleLength)
	}
	return nil
}

// ValidatePassword validates a plaintext password against registration rules.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code(CodeInvalidInput).
			With("field", "password").
			With("min", MinPasswordLength).
			Errorf("Password must be at least %d characters!", MinPasswordLength)
	}
	return nil
}
