// ABOUTME: HTTP middleware implementing the status allow-list authorization gate
// ABOUTME: Identify resolves a caller from cookie or bearer token; RequireGoodStanding decides and bookkeeps

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/2389/inkwell/internal/store"
)

// SessionCookieName is the name of the browser session cookie
const SessionCookieName = "inkwell_session"

// allowedStatuses is the fixed set of account statuses permitted past the
// gate. Immutable for the lifetime of the process.
var allowedStatuses = map[string]bool{
	store.StatusActive:   true,
	store.StatusOnReview: true,
}

// StatusAllowed reports whether an account status passes the gate.
func StatusAllowed(status string) bool {
	return allowedStatuses[status]
}

// SessionResolver maps a session cookie value to a live session
type SessionResolver interface {
	GetSession(ctx context.Context, id string) (*store.Session, error)
}

// StatusStore resolves the current standing of an account
type StatusStore interface {
	GetUserStatus(ctx context.Context, id int64) (string, error)
}

// Bookkeeper records gate passage on the caller's posts
type Bookkeeper interface {
	TouchAuthorSeen(ctx context.Context, authorID int64, seen time.Time) error
}

// GateStore combines what the gate needs from the store
type GateStore interface {
	StatusStore
	Bookkeeper
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// Identify creates an HTTP middleware that resolves a caller identity from
// the session cookie, or from an Authorization bearer JWT when no cookie
// session matches. Requests without either pass through anonymous; the
// identity is attached to the request context for the gate downstream.
// A presented-but-invalid token is rejected outright rather than demoted
// to anonymous.
func Identify(sessions SessionResolver, verifier TokenVerifier) func(http.Handler) http.Handler {
	logger := slog.Default().With("component", "auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
				session, err := sessions.GetSession(r.Context(), cookie.Value)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), session.UserID)))
					return
				}
				if !errors.Is(err, store.ErrSessionNotFound) {
					logger.Error("session lookup failed", "error", err)
					http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
					return
				}
				// Unknown or expired cookie falls through to token auth
			}

			if verifier != nil {
				if token, errMsg := extractBearerToken(r.Header.Get("Authorization")); errMsg == "" {
					userID, err := verifier.Verify(token)
					if err != nil {
						http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
						return
					}
					next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), userID)))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireGoodStanding creates the authorization gate wrapping protected
// handlers. An anonymous caller is denied before any query runs. For an
// identified caller the account status is resolved and checked against the
// allow-list; on passage the caller's posts get their author_seen stamp
// before the wrapped handler is invoked. A store fault during either step
// surfaces as an internal failure and the wrapped handler never runs.
func RequireGoodStanding(gateStore GateStore) func(http.HandlerFunc) http.HandlerFunc {
	logger := slog.Default().With("component", "gate")

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			userID, ok := IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}

			status, err := gateStore.GetUserStatus(r.Context(), userID)
			if errors.Is(err, store.ErrNotFound) {
				// Session points at an account that no longer exists
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}
			if err != nil {
				logger.Error("status lookup failed", "user_id", userID, "error", err)
				http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
				return
			}

			if !allowedStatuses[status] {
				logger.Info("denied by allow-list", "user_id", userID, "status", status)
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}

			if err := gateStore.TouchAuthorSeen(r.Context(), userID, time.Now()); err != nil {
				logger.Error("author_seen bookkeeping failed", "user_id", userID, "error", err)
				http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
				return
			}

			next(w, r)
		}
	}
}
