// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 sramkeep Contributors

// Package memory provides an in-memory CredentialStore with the same
// atomic semantics as the postgres implementation. Used by tests and by
// local development without a database.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sramkeep/sramkeep/internal/auth"
)

// record is the stored form of a user plus their active token.
type record struct {
	user         auth.User
	tokenHash    string
	tokenExpires time.Time
}

// referral is a stored single-use code.
type referral struct {
	issuedBy ulid.ULID
	expires  time.Time
}

// Store implements auth.CredentialStore with mutex-guarded maps. A single
// mutex covers every operation, which makes the reserve-if-absent and
// delete-and-return primitives trivially atomic.
type Store struct {
	mu        sync.Mutex
	handles   map[string]ulid.ULID // lower(handle) -> id
	users     map[ulid.ULID]*record
	referrals map[string]referral
	cooldowns map[ulid.ULID]time.Time
	now       func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock creates a Store with an injected clock, so TTL behavior can
// be tested deterministically.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		handles:   make(map[string]ulid.ULID),
		users:     make(map[ulid.ULID]*record),
		referrals: make(map[string]referral),
		cooldowns: make(map[ulid.ULID]time.Time),
		now:       now,
	}
}

// ReserveHandle atomically inserts handle -> new id if absent.
func (s *Store) ReserveHandle(_ context.Context, handle string, referredBy ulid.ULID) (ulid.ULID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(handle)
	if _, taken := s.handles[key]; taken {
		return ulid.ULID{}, auth.ErrHandleTaken
	}

	id := ulid.Make()
	s.handles[key] = id

	var ref *ulid.ULID
	if referredBy.Compare(ulid.ULID{}) != 0 {
		r := referredBy
		ref = &r
	}
	s.users[id] = &record{
		user: auth.User{
			ID:         id,
			Handle:     handle,
			JoinedAt:   s.now(),
			ReferredBy: ref,
		},
	}
	return id, nil
}

// GetUserByHandle retrieves a user by handle (case-insensitive).
func (s *Store) GetUserByHandle(_ context.Context, handle string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.handles[strings.ToLower(handle)]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return s.copyUser(id)
}

// GetUserByID retrieves a user by id.
func (s *Store) GetUserByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyUser(id)
}

// SetPasswordHash completes an account by storing its password hash.
func (s *Store) SetPasswordHash(_ context.Context, id ulid.ULID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	rec.user.PasswordHash = hash
	return nil
}

// GetPasswordHash returns the stored hash, treating an incomplete
// reservation (empty hash) the same as an unknown id.
func (s *Store) GetPasswordHash(_ context.Context, id ulid.ULID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok || rec.user.PasswordHash == "" {
		return "", auth.ErrNotFound
	}
	return rec.user.PasswordHash, nil
}

// PutReferral stores a single-use code with a bounded lifetime.
func (s *Store) PutReferral(_ context.Context, code string, issuedBy ulid.ULID, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.referrals[code] = referral{issuedBy: issuedBy, expires: s.now().Add(ttl)}
	return nil
}

// RedeemReferral atomically deletes the code and returns its issuer.
func (s *Store) RedeemReferral(_ context.Context, code string) (ulid.ULID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.referrals[code]
	if !ok {
		return ulid.ULID{}, auth.ErrInvalidReferral
	}
	delete(s.referrals, code)
	if s.now().After(ref.expires) {
		return ulid.ULID{}, auth.ErrInvalidReferral
	}
	return ref.issuedBy, nil
}

// SetReferralCooldown starts the referral-issuing cooldown for a user.
func (s *Store) SetReferralCooldown(_ context.Context, id ulid.ULID, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cooldowns[id] = s.now().Add(ttl)
	return nil
}

// InReferralCooldown reports whether the user's cooldown is active.
func (s *Store) InReferralCooldown(_ context.Context, id ulid.ULID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline, ok := s.cooldowns[id]
	if !ok {
		return false, nil
	}
	if s.now().After(deadline) {
		delete(s.cooldowns, id)
		return false, nil
	}
	return true, nil
}

// SetActiveToken replaces the user's active token hash.
func (s *Store) SetActiveToken(_ context.Context, id ulid.ULID, tokenHash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	rec.tokenHash = tokenHash
	rec.tokenExpires = s.now().Add(ttl)
	return nil
}

// GetActiveToken returns the active token hash and remaining lifetime. An
// elapsed token reads as absent.
func (s *Store) GetActiveToken(_ context.Context, id ulid.ULID) (string, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok || rec.tokenHash == "" {
		return "", 0, auth.ErrNotFound
	}
	remaining := rec.tokenExpires.Sub(s.now())
	if remaining <= 0 {
		rec.tokenHash = ""
		return "", 0, auth.ErrNotFound
	}
	return rec.tokenHash, remaining, nil
}

// ClearActiveToken removes the user's active token. No-op for unknown ids
// or users with no token.
func (s *Store) ClearActiveToken(_ context.Context, id ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.users[id]; ok {
		rec.tokenHash = ""
	}
	return nil
}

// copyUser returns a copy so callers cannot mutate stored state.
// Caller must hold s.mu.
func (s *Store) copyUser(id ulid.ULID) (*auth.User, error) {
	rec, ok := s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	u := rec.user
	if rec.user.ReferredBy != nil {
		r := *rec.user.ReferredBy
		u.ReferredBy = &r
	}
	return &u, nil
}

// Compile-time interface check.
var _ auth.CredentialStore = (*Store)(nil)
