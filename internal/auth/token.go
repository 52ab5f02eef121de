// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 sramkeep Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	// SessionTokenBytes is the entropy of a token; 32 bytes = 64 hex chars.
	SessionTokenBytes = 32

	// DefaultTokenTTL bounds the lifetime of an unrevoked session token.
	DefaultTokenTTL = 24 * time.Hour
)

// GenerateSessionToken creates a cryptographically unpredictable token and
// its hash. Returns (plaintext_token, sha256_hash, error). The plaintext
// token goes to the session carrier; only the hash is persisted.
func GenerateSessionToken() (token, hash string, err error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	hash = HashSessionToken(token)

	return token, hash, nil
}

// HashSessionToken computes the SHA256 hash of a session token. This is
// what the credential store holds; a stolen store dump does not yield
// usable tokens.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// TokenIssuer mints and revokes the single active session token per user.
// A newly issued token overwrites the previous one, so at any instant at
// most one token is valid for a given user id.
type TokenIssuer struct {
	store CredentialStore
	ttl   time.Duration
}

// NewTokenIssuer creates a TokenIssuer. ttl bounds the lifetime of issued
// tokens and must be positive.
func NewTokenIssuer(store CredentialStore, ttl time.Duration) (*TokenIssuer, error) {
	if store == nil {
		return nil, oops.Errorf("credential store is required")
	}
	if ttl <= 0 {
		return nil, oops.With("ttl", ttl).Errorf("token ttl must be positive")
	}
	return &TokenIssuer{store: store, ttl: ttl}, nil
}

// Issue generates a fresh token for the user and stores its hash,
// invalidating any previously active token.
func (i *TokenIssuer) Issue(ctx context.Context, userID ulid.ULID) (string, error) {
	token, hash, err := GenerateSessionToken()
	if err != nil {
		return "", err
	}
	if err := i.store.SetActiveToken(ctx, userID, hash, i.ttl); err != nil {
		return "", oops.Code(CodeStoreUnavailable).
			With("operation", "set active token").
			Wrap(err)
	}
	return token, nil
}

// Revoke clears the active token for the user. Revoking a user with no
// active token is a no-op.
func (i *TokenIssuer) Revoke(ctx context.Context, userID ulid.ULID) error {
	if err := i.store.ClearActiveToken(ctx, userID); err != nil {
		return oops.Code(CodeStoreUnavailable).
			With("operation", "clear active token").
			Wrap(err)
	}
	return nil
}

// Validate reports whether token is the currently active, unexpired token
// for the user. TTL is enforced here, at verification time: the store
// treats an elapsed token as absent even if it was never revoked.
func (i *TokenIssuer) Validate(ctx context.Context, userID ulid.ULID, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	stored, _, err := i.store.GetActiveToken(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, oops.Code(CodeStoreUnavailable).
			With("operation", "get active token").
			Wrap(err)
	}
	computed := HashSessionToken(token)
	// Both are hex-encoded SHA256 hashes, compare in constant time.
	return subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) == 1, nil
}
