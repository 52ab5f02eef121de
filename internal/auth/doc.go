// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 sramkeep Contributors

// Package auth provides the session authentication and credential
// subsystem for sramkeep.
//
// # Domain Types
//
// User is the identity record; a user's handle maps to exactly one live
// id and is reserved atomically at signup. Session is the value handed to
// the request layer after a successful signup or login. CarrierState is
// the client-held (user id, token, handle) triple managed through the
// SessionCarrier boundary; it is never the source of truth and is always
// re-verified against the credential store.
//
// # Services
//
// Engine orchestrates signup, login, logout, and per-request
// authentication checks. TokenIssuer mints and revokes the single active
// session token per user. ReferralService issues the single-use referral
// codes that gate registration.
//
// All shared state lives behind the CredentialStore interface, whose
// implementations (memory, postgres) expose the atomic primitives that
// make concurrent signups safe without transactions: reserve-if-absent
// for handles and delete-and-return for referral codes.
package auth
