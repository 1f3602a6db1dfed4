// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mkaschke/bucketlist/internal/logging"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "bucketlist_session"

// MiddlewareConfig holds cookie and session-lifetime settings for the
// authentication middleware.
type MiddlewareConfig struct {
	// CookieName is the session cookie name.
	CookieName string

	// SessionTTL is the session time-to-live.
	SessionTTL time.Duration

	// SlidingSession extends expiry on each authenticated request.
	SlidingSession bool

	// CookieSecure sets the Secure flag. Disabled for plain-HTTP development.
	CookieSecure bool
}

// DefaultMiddlewareConfig returns production cookie defaults.
func DefaultMiddlewareConfig() *MiddlewareConfig {
	return &MiddlewareConfig{
		CookieName:     SessionCookieName,
		SessionTTL:     24 * time.Hour,
		SlidingSession: true,
		CookieSecure:   true,
	}
}

// Middleware authenticates requests from either the session cookie or a
// Bearer token and attaches the resulting Identity to the request context.
type Middleware struct {
	store  SessionStore
	jwt    *JWTManager
	config *MiddlewareConfig
}

// NewMiddleware creates the authentication middleware. A nil config uses
// DefaultMiddlewareConfig.
func NewMiddleware(store SessionStore, jwt *JWTManager, config *MiddlewareConfig) *Middleware {
	if config == nil {
		config = DefaultMiddlewareConfig()
	}
	return &Middleware{store: store, jwt: jwt, config: config}
}

// Authenticate resolves the caller's identity if credentials are present.
// Anonymous requests pass through; use RequireAuth on protected routes.
// The session cookie takes priority over the Authorization header.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := m.identityFromSession(r)
		if identity == nil {
			identity = m.identityFromBearer(r)
		}
		if identity == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := ContextWithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identityFromSession validates the session cookie, touching the session
// when sliding expiry is enabled.
func (m *Middleware) identityFromSession(r *http.Request) *Identity {
	cookie, err := r.Cookie(m.config.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	session, err := m.store.Get(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
			logging.Error().Err(err).Msg("Session lookup error")
		}
		return nil
	}

	if m.config.SlidingSession {
		newExpiry := time.Now().Add(m.config.SessionTTL)
		if touchErr := m.store.Touch(r.Context(), session.ID, newExpiry); touchErr != nil {
			logging.Error().Err(touchErr).Msg("Failed to touch session")
		}
	}

	return &Identity{
		UserID:    session.UserID,
		Username:  session.Username,
		Role:      session.Role,
		SessionID: session.ID,
	}
}

// identityFromBearer validates an "Authorization: Bearer" JWT.
func (m *Middleware) identityFromBearer(r *http.Request) *Identity {
	if m.jwt == nil {
		return nil
	}

	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil
	}

	claims, err := m.jwt.ValidateToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return nil
	}

	return &Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	}
}

// RequireAuth rejects anonymous requests with 401.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			writeAuthError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// RequireAdmin rejects anonymous requests with 401 and non-admins with 403.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !identity.IsAdmin() {
			writeAuthError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // error response
	w.Write([]byte(`{"status":"error","error":{"code":"` + http.StatusText(status) + `","message":"` + message + `"}}`))
}

// CreateSession creates a session for a freshly authenticated user and sets
// the cookie. Any session named by oldSessionID is deleted first so a new
// session ID is always issued after login (session fixation protection).
func (m *Middleware) CreateSession(ctx context.Context, w http.ResponseWriter, userID, username, role, oldSessionID string) (*Session, error) {
	if oldSessionID != "" {
		//nolint:errcheck // best effort cleanup
		m.store.Delete(ctx, oldSessionID)
	}

	session := NewSession(userID, username, role, m.config.SessionTTL)
	if err := m.store.Create(ctx, session); err != nil {
		return nil, err
	}

	m.SetSessionCookie(w, session.ID)
	return session, nil
}

// RevokeUser deletes every session belonging to the user and returns how
// many were removed. No cookies are cleared; revoked browsers just find
// their session gone on the next request.
func (m *Middleware) RevokeUser(ctx context.Context, userID string) (int, error) {
	return m.store.DeleteByUserID(ctx, userID)
}

// DestroySession deletes the session and clears the cookie.
func (m *Middleware) DestroySession(ctx context.Context, w http.ResponseWriter, sessionID string) error {
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	m.ClearSessionCookie(w)
	return nil
}

// SetSessionCookie sets the session cookie on the response.
func (m *Middleware) SetSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(m.config.SessionTTL.Seconds()),
		Secure:   m.config.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie clears the session cookie.
func (m *Middleware) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   m.config.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// CookieName returns the configured session cookie name.
func (m *Middleware) CookieName() string {
	return m.config.CookieName
}
