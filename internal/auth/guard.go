// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 sramkeep Contributors

package auth

import (
	"net/http"
	"net/url"
	"strings"
)

// AuthenticatedHandler is a protected handler. It receives the resolved
// user explicitly instead of reading it from ambient request state.
type AuthenticatedHandler func(w http.ResponseWriter, r *http.Request, user *User)

// CarrierFromRequest binds a SessionCarrier to a request. The web-session
// mechanism (cookie codec, signing) provides this; tests use an in-memory
// carrier.
type CarrierFromRequest func(r *http.Request) SessionCarrier

// RequireAuthenticated wraps a protected handler. Unauthenticated requests
// are redirected to loginPath with the originally requested path and query
// preserved in the "r" parameter, so a later login can return there. Store
// faults surface as a generic failure, never a silent retry.
func (e *Engine) RequireAuthenticated(carrier CarrierFromRequest, loginPath string, next AuthenticatedHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := e.Authenticate(r.Context(), carrier(r))
		if err != nil {
			e.logger.Error("authentication check failed", "path", r.URL.Path, "error", err)
			http.Error(w, "service unavailable", http.StatusInternalServerError)
			return
		}
		if user == nil {
			http.Redirect(w, r, loginPath+"?r="+url.QueryEscape(ReturnToPath(r)), http.StatusFound)
			return
		}
		next(w, r, user)
	})
}

// ReturnToPath derives the post-login return target from a request: the
// full path and query with the leading slash and any dangling "?" removed.
func ReturnToPath(r *http.Request) string {
	full := r.URL.RequestURI()
	return strings.TrimSuffix(strings.TrimPrefix(full, "/"), "?")
}
