// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 sramkeep Contributors

package auth

import "github.com/oklog/ulid/v2"

// CarrierState is the client-visible session value: the (user id, token)
// pair plus a display-only handle cache. Empty strings mean absent. The
// state is never trusted on its own; Engine.Authenticate re-verifies the
// token against the credential store on every call.
type CarrierState struct {
	UserID string
	Token  string
	Handle string
}

// SessionCarrier is the boundary to the web-session mechanism that holds
// CarrierState on the client. Its encoding and tamper-proofing belong to
// that mechanism; this subsystem only gets and sets the value.
type SessionCarrier interface {
	Get() CarrierState
	Set(state CarrierState)
}

// Session is the value produced by a successful signup or login, to be
// handed by the request layer to whatever needs it (the carrier write has
// already happened inside the Engine).
type Session struct {
	UserID ulid.ULID
	Token  string
	Handle string

	// ReturnTo is the post-login redirect path supplied by the request
	// layer, passed through unmodified.
	ReturnTo string
}

// carrierState converts the session into the client-held value.
func (s Session) carrierState() CarrierState {
	return CarrierState{
		UserID: s.UserID.String(),
		Token:  s.Token,
		Handle: s.Handle,
	}
}
