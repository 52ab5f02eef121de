// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 sramkeep Contributors

package auth

import "errors"

// Error codes attached to the coded errors the Engine returns. The request
// layer renders the error message as a flash and can branch on the code.
const (
	// CodeInvalidInput marks a field-level validation failure; the
	// offending field is recorded in the error context.
	CodeInvalidInput = "AUTH_INVALID_INPUT"

	// CodeHandleTaken marks a signup that lost the handle reservation.
	CodeHandleTaken = "AUTH_HANDLE_TAKEN"

	// CodeInvalidReferral marks a signup with an unredeemable referral code.
	CodeInvalidReferral = "AUTH_INVALID_REFERRAL"

	// CodeInvalidCredentials marks a failed login. Deliberately does not
	// distinguish unknown handle from wrong password.
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"

	// CodeReferralCooldown marks a referral issue attempt during cooldown.
	CodeReferralCooldown = "AUTH_REFERRAL_COOLDOWN"

	// CodeStoreUnavailable marks an infrastructure fault in the credential
	// store. Never retried here; the request layer renders a generic
	// failure page.
	CodeStoreUnavailable = "AUTH_STORE_UNAVAILABLE"
)

// Sentinel errors returned by CredentialStore implementations. The Engine
// translates these into user-facing coded errors; anything else coming out
// of a store is treated as a store fault.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrHandleTaken is returned when a handle reservation loses to an
	// existing or concurrent registration.
	ErrHandleTaken = errors.New("handle taken")

	// ErrInvalidReferral is returned when a referral code is unknown,
	// expired, or already redeemed.
	ErrInvalidReferral = errors.New("invalid referral code")

	// ErrReferralCooldown is returned when a user tries to issue a
	// referral code before their cooldown has elapsed.
	ErrReferralCooldown = errors.New("referral cooldown active")
)
