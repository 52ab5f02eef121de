// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 sramkeep Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// dummyPasswordHash is used when a user doesn't exist to prevent timing
// attacks. We still run password verification so response time does not
// reveal whether the handle was known. This is NOT a real credential.
//
//nolint:gosec // G101: intentionally fake hash, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Engine orchestrates signup, login, logout, and per-request
// authentication checks. It holds no mutable state of its own; everything
// shared lives in the credential store, so one Engine value is safe for
// concurrent use by all request workers.
type Engine struct {
	store    CredentialStore
	hasher   PasswordHasher
	tokens   *TokenIssuer
	cooldown time.Duration
	logger   *slog.Logger
	metrics  Metrics
}

// EngineOptions carries the optional collaborators of an Engine.
type EngineOptions struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics receives outcome counters; nil disables recording.
	Metrics Metrics

	// ReferralCooldown is started for every new account at signup.
	// Non-positive means DefaultReferralCooldown.
	ReferralCooldown time.Duration
}

// NewEngine creates an Engine with default options.
func NewEngine(store CredentialStore, hasher PasswordHasher, tokens *TokenIssuer) (*Engine, error) {
	return NewEngineWithOptions(store, hasher, tokens, EngineOptions{})
}

// NewEngineWithOptions creates an Engine with explicit options.
func NewEngineWithOptions(store CredentialStore, hasher PasswordHasher, tokens *TokenIssuer, opts EngineOptions) (*Engine, error) {
	if store == nil {
		return nil, oops.Errorf("credential store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var metrics Metrics = nopMetrics{}
	if opts.Metrics != nil {
		metrics = opts.Metrics
	}
	cooldown := opts.ReferralCooldown
	if cooldown <= 0 {
		cooldown = DefaultReferralCooldown
	}

	return &Engine{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		cooldown: cooldown,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Signup registers a new account and authenticates it in one flow.
//
// The referral code is redeemed before the handle is reserved so a storm
// of signups without valid codes cannot exhaust the handle namespace. The
// ordering also fixes the crash semantics: the worst surviving artifact of
// a failed signup is a spent referral code or a reserved-but-passwordless
// handle, both of which read as "not yet registered".
func (e *Engine) Signup(ctx context.Context, carrier SessionCarrier, handle, password, referralCode string) (*Session, error) {
	if err := ValidateHandle(handle); err != nil {
		e.metrics.RecordSignup(OutcomeRejected)
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		e.metrics.RecordSignup(OutcomeRejected)
		return nil, err
	}
	if referralCode == "" {
		e.metrics.RecordSignup(OutcomeRejected)
		return nil, oops.Code(CodeInvalidInput).
			With("field", "referral_code").
			Errorf("Please enter a referral code.")
	}

	referrer, err := e.store.RedeemReferral(ctx, referralCode)
	if err != nil {
		if errors.Is(err, ErrInvalidReferral) {
			e.metrics.RecordSignup(OutcomeRejected)
			return nil, oops.Code(CodeInvalidReferral).
				Errorf("Referral code is not valid")
		}
		e.metrics.RecordSignup(OutcomeFault)
		return nil, oops.Code(CodeStoreUnavailable).
			With("operation", "redeem referral").
			Wrap(err)
	}

	// From here on the code is spent; a lost reservation does not restore
	// it. Documented limitation, accepted over multi-key transactions.
	userID, err := e.store.ReserveHandle(ctx, handle, referrer)
	if err != nil {
		if errors.Is(err, ErrHandleTaken) {
			e.metrics.RecordSignup(OutcomeRejected)
			return nil, oops.Code(CodeHandleTaken).
				With("handle", handle).
				Errorf("That handle is taken! Please choose a different one.")
		}
		e.metrics.RecordSignup(OutcomeFault)
		return nil, oops.Code(CodeStoreUnavailable).
			With("operation", "reserve handle").
			Wrap(err)
	}

	hash, err := e.hasher.Hash(password)
	if err != nil {
		e.metrics.RecordSignup(OutcomeFault)
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	if err := e.store.SetPasswordHash(ctx, userID, hash); err != nil {
		e.metrics.RecordSignup(OutcomeFault)
		return nil, oops.Code(CodeStoreUnavailable).
			With("operation", "set password hash").
			Wrap(err)
	}

	token, err := e.tokens.Issue(ctx, userID)
	if err != nil {
		e.metrics.RecordSignup(OutcomeFault)
		return nil, err
	}

	// New accounts wait out a cooldown before issuing referrals of their
	// own. Best effort: the account is already fully formed.
	if err := e.store.SetReferralCooldown(ctx, userID, e.cooldown); err != nil {
		e.logger.Warn("failed to set referral cooldown at signup",
			"user_id", userID.String(), "error", err)
	}

	session := &Session{UserID: userID, Token: token, Handle: handle}
	carrier.Set(session.carrierState())

	e.logger.Info("signup completed",
		"user_id", userID.String(),
		"handle", handle,
		"referred_by", referrer.String(),
	)
	e.metrics.RecordSignup(OutcomeOK)
	return session, nil
}

// Login authenticates a (handle, password) pair and issues a fresh token,
// invalidating any previously active session for that user. The returnTo
// path is passed through to the Session unmodified.
//
// Unknown handle, incomplete registration, and wrong password all yield
// the same AUTH_INVALID_CREDENTIALS error, and all run one password
// verification so timing does not distinguish them either.
func (e *Engine) Login(ctx context.Context, carrier SessionCarrier, handle, password, returnTo string) (*Session, error) {
	targetHash := dummyPasswordHash
	known := false

	var userID ulid.ULID
	user, err := e.store.GetUserByHandle(ctx, handle)
	switch {
	case err == nil:
		userID = user.ID
		storedHash, hashErr := e.store.GetPasswordHash(ctx, userID)
		if hashErr == nil {
			targetHash = storedHash
			known = true
		} else if !errors.Is(hashErr, ErrNotFound) {
			e.metrics.RecordLogin(OutcomeFault)
			return nil, oops.Code(CodeStoreUnavailable).
				With("operation", "get password hash").
				Wrap(hashErr)
		}
	case errors.Is(err, ErrNotFound):
		// Fall through with the dummy hash.
	default:
		e.metrics.RecordLogin(OutcomeFault)
		return nil, oops.Code(CodeStoreUnavailable).
			With("operation", "get user by handle").
			Wrap(err)
	}

	valid, verifyErr := e.hasher.Verify(password, targetHash)
	if verifyErr != nil && known {
		e.metrics.RecordLogin(OutcomeFault)
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}
	if !known || !valid {
		e.metrics.RecordLogin(OutcomeRejected)
		return nil, oops.Code(CodeInvalidCredentials).Errorf("Login incorrect.")
	}

	token, err := e.tokens.Issue(ctx, userID)
	if err != nil {
		e.metrics.RecordLogin(OutcomeFault)
		return nil, err
	}

	session := &Session{UserID: userID, Token: token, Handle: user.Handle, ReturnTo: returnTo}
	carrier.Set(session.carrierState())

	e.logger.Info("login completed", "user_id", userID.String(), "handle", user.Handle)
	e.metrics.RecordLogin(OutcomeOK)
	return session, nil
}

// Logout revokes the carrier's session. Idempotent: a carrier with no
// valid session is a no-op, not an error. The cached handle stays on the
// carrier for display.
func (e *Engine) Logout(ctx context.Context, carrier SessionCarrier) error {
	user, err := e.Authenticate(ctx, carrier)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	if err := e.tokens.Revoke(ctx, user.ID); err != nil {
		return err
	}

	state := carrier.Get()
	state.Token = ""
	carrier.Set(state)

	e.logger.Info("logout completed", "user_id", user.ID.String())
	return nil
}

// Authenticate evaluates the carrier's authentication state. It returns
// the authenticated user, or (nil, nil) for a normal unauthenticated
// outcome; only store faults produce an error. Called on every protected
// request: O(1) store lookups, no password hashing.
func (e *Engine) Authenticate(ctx context.Context, carrier SessionCarrier) (*User, error) {
	state := carrier.Get()
	if state.UserID == "" || state.Token == "" {
		e.metrics.RecordSessionCheck(OutcomeRejected)
		return nil, nil
	}

	userID, err := ulid.Parse(state.UserID)
	if err != nil {
		// Garbage in the carrier; drop the id so the client heals.
		state.UserID = ""
		carrier.Set(state)
		e.metrics.RecordSessionCheck(OutcomeRejected)
		return nil, nil
	}

	valid, err := e.tokens.Validate(ctx, userID, state.Token)
	if err != nil {
		e.metrics.RecordSessionCheck(OutcomeFault)
		return nil, err
	}
	if !valid {
		e.metrics.RecordSessionCheck(OutcomeRejected)
		return nil, nil
	}

	user, err := e.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Token checked out but the account is gone; drop the token.
			state.Token = ""
			carrier.Set(state)
			e.metrics.RecordSessionCheck(OutcomeRejected)
			return nil, nil
		}
		e.metrics.RecordSessionCheck(OutcomeFault)
		return nil, oops.Code(CodeStoreUnavailable).
			With("operation", "get user by id").
			Wrap(err)
	}

	e.metrics.RecordSessionCheck(OutcomeOK)
	return user, nil
}
