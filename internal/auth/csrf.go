// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mkaschke/bucketlist/internal/logging"
)

// CSRF protection errors
var (
	// ErrCSRFTokenMissing indicates no CSRF token was provided.
	ErrCSRFTokenMissing = errors.New("CSRF token missing")

	// ErrCSRFTokenInvalid indicates the submitted token does not match the cookie.
	ErrCSRFTokenInvalid = errors.New("CSRF token invalid")

	// ErrCSRFTokenExpired indicates the CSRF token has expired.
	ErrCSRFTokenExpired = errors.New("CSRF token expired")
)

const (
	csrfCookieName = "_csrf"
	csrfFieldName  = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	csrfTokenBytes = 32
	csrfTokenTTL   = 24 * time.Hour
)

// CSRFConfig holds configuration for CSRF protection.
type CSRFConfig struct {
	// CookieSecure sets the Secure flag on the token cookie.
	CookieSecure bool

	// ExemptPaths skip validation entirely. The JSON API is exempt since
	// it authenticates with Bearer tokens rather than ambient cookies.
	ExemptPaths []string
}

// CSRFMiddleware protects the HTML form endpoints using the double-submit
// cookie pattern: the token lives in a cookie and must be echoed back in a
// form field or header on every state-changing request.
type CSRFMiddleware struct {
	config CSRFConfig

	mu     sync.RWMutex
	tokens map[string]time.Time // token -> expiry
}

// NewCSRFMiddleware creates a CSRF protection middleware.
func NewCSRFMiddleware(config CSRFConfig) *CSRFMiddleware {
	return &CSRFMiddleware{
		config: config,
		tokens: make(map[string]time.Time),
	}
}

// Protect validates the CSRF token on state-changing requests. Safe methods
// pass through and get a token cookie issued for subsequent form posts.
func (m *CSRFMiddleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.isExemptPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			m.ensureToken(w, r)
			next.ServeHTTP(w, r)
			return
		}

		if err := m.validateToken(r); err != nil {
			logging.Warn().Err(err).Str("path", r.URL.Path).Msg("CSRF validation failed")
			http.Error(w, "Forbidden: "+err.Error(), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Token returns a valid CSRF token for embedding in a form, issuing a fresh
// one (and cookie) when needed.
func (m *CSRFMiddleware) Token(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(csrfCookieName); err == nil && cookie.Value != "" {
		if m.isValid(cookie.Value) {
			return cookie.Value
		}
	}
	return m.issueToken(w)
}

// ensureToken issues a token cookie if the request does not carry a valid one.
func (m *CSRFMiddleware) ensureToken(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(csrfCookieName); err == nil && cookie.Value != "" {
		if m.isValid(cookie.Value) {
			return
		}
	}
	m.issueToken(w)
}

func (m *CSRFMiddleware) issueToken(w http.ResponseWriter) string {
	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		logging.Error().Err(err).Msg("CSRF: failed to generate token")
		return ""
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	m.mu.Lock()
	m.tokens[token] = time.Now().Add(csrfTokenTTL)
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(csrfTokenTTL.Seconds()),
		Secure:   m.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	return token
}

func (m *CSRFMiddleware) validateToken(r *http.Request) error {
	cookie, err := r.Cookie(csrfCookieName)
	if err != nil || cookie.Value == "" {
		return ErrCSRFTokenMissing
	}

	submitted := r.Header.Get(csrfHeaderName)
	if submitted == "" {
		submitted = r.FormValue(csrfFieldName)
	}
	if submitted == "" {
		return ErrCSRFTokenMissing
	}

	// Constant-time comparison to prevent timing attacks
	if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(submitted)) != 1 {
		return ErrCSRFTokenInvalid
	}

	if !m.isValid(cookie.Value) {
		return ErrCSRFTokenExpired
	}
	return nil
}

func (m *CSRFMiddleware) isValid(token string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	expiry, ok := m.tokens[token]
	return ok && time.Now().Before(expiry)
}

func (m *CSRFMiddleware) isExemptPath(path string) bool {
	for _, exempt := range m.config.ExemptPaths {
		if strings.HasPrefix(path, exempt) {
			return true
		}
	}
	return false
}

// CleanupExpired removes expired tokens and returns the count removed.
func (m *CSRFMiddleware) CleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	now := time.Now()
	for token, expiry := range m.tokens {
		if now.After(expiry) {
			delete(m.tokens, token)
			count++
		}
	}
	return count
}
