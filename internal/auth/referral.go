// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 sramkeep Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Referral code configuration.
const (
	// ReferralCodeBytes is the entropy of a code; 16 bytes = 32 hex chars.
	ReferralCodeBytes = 16

	// DefaultReferralTTL bounds how long an unredeemed code stays valid.
	DefaultReferralTTL = 7 * 24 * time.Hour

	// DefaultReferralCooldown is how long a user waits between issuing
	// referral codes. Signup starts this cooldown for the new account.
	DefaultReferralCooldown = 24 * time.Hour
)

// GenerateReferralCode creates a cryptographically unpredictable code.
func GenerateReferralCode() (string, error) {
	b := make([]byte, ReferralCodeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("REFERRAL_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			Wrap(err)
	}
	return hex.EncodeToString(b), nil
}

// ReferralService issues the single-use admission tickets that gate
// signup. Redemption lives on the Engine's signup path; issuing lives
// here, gated by a per-user cooldown.
type ReferralService struct {
	store    CredentialStore
	ttl      time.Duration
	cooldown time.Duration
}

// NewReferralService creates a ReferralService. Non-positive ttl or
// cooldown fall back to the defaults.
func NewReferralService(store CredentialStore, ttl, cooldown time.Duration) (*ReferralService, error) {
	if store == nil {
		return nil, oops.Errorf("credential store is required")
	}
	if ttl <= 0 {
		ttl = DefaultReferralTTL
	}
	if cooldown <= 0 {
		cooldown = DefaultReferralCooldown
	}
	return &ReferralService{store: store, ttl: ttl, cooldown: cooldown}, nil
}

// Issue mints a referral code on behalf of issuedBy and starts their
// cooldown. Returns ErrReferralCooldown (coded) while the cooldown from a
// previous issue or from signup is still active.
func (s *ReferralService) Issue(ctx context.Context, issuedBy ulid.ULID) (string, error) {
	active, err := s.store.InReferralCooldown(ctx, issuedBy)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", oops.Code(CodeStoreUnavailable).
			With("operation", "check referral cooldown").
			Wrap(err)
	}
	if active {
		return "", oops.Code(CodeReferralCooldown).
			With("issued_by", issuedBy.String()).
			Wrapf(ErrReferralCooldown, "You can only issue one referral code per day.")
	}

	code, err := GenerateReferralCode()
	if err != nil {
		return "", err
	}

	if err := s.store.PutReferral(ctx, code, issuedBy, s.ttl); err != nil {
		return "", oops.Code(CodeStoreUnavailable).
			With("operation", "put referral").
			Wrap(err)
	}

	if err := s.store.SetReferralCooldown(ctx, issuedBy, s.cooldown); err != nil {
		return "", oops.Code(CodeStoreUnavailable).
			With("operation", "set referral cooldown").
			Wrap(err)
	}

	return code, nil
}
