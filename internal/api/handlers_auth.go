// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mkaschke/bucketlist/internal/auth"
	"github.com/mkaschke/bucketlist/internal/database"
	"github.com/mkaschke/bucketlist/internal/logging"
	"github.com/mkaschke/bucketlist/internal/metrics"
	"github.com/mkaschke/bucketlist/internal/models"
)

// Register creates a new account.
//
// POST /api/v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if !validateRequest(w, &req) {
		metrics.RecordRegistration("invalid")
		return
	}

	user, err := h.service.Register(r.Context(), &req)
	if err != nil {
		metrics.RecordRegistration("failure")
		h.respondRegisterError(w, err)
		return
	}

	metrics.RecordRegistration("success")
	respondSuccess(w, http.StatusCreated, user.Info(), start)
}

func (h *Handler) respondRegisterError(w http.ResponseWriter, err error) {
	var policyErr *auth.PolicyError
	switch {
	case errors.Is(err, auth.ErrRegistrationDisabled):
		respondError(w, http.StatusForbidden, "REGISTRATION_DISABLED", "Registration is disabled", nil)
	case errors.Is(err, auth.ErrRegistrationThrottled):
		respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Too many signups, try again later", nil)
	case errors.As(err, &policyErr):
		respondError(w, http.StatusBadRequest, "WEAK_PASSWORD", policyErr.Error(), nil)
	default:
		respondDBError(w, err)
	}
}

// Login verifies credentials, establishes a server-side session and
// returns a bearer token for API clients.
//
// POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	user, err := h.service.Login(r.Context(), req.Username, req.Password, clientIP(r))
	if err != nil {
		metrics.RecordLogin("failure")
		switch {
		case errors.Is(err, auth.ErrAccountLocked):
			respondError(w, http.StatusLocked, "ACCOUNT_LOCKED", err.Error(), nil)
		case errors.Is(err, auth.ErrInvalidCredentials):
			respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Invalid username or password", nil)
		default:
			respondDBError(w, err)
		}
		return
	}

	// Rotate any session the browser already holds.
	oldSessionID := ""
	if cookie, err := r.Cookie(h.sessions.CookieName()); err == nil {
		oldSessionID = cookie.Value
	}
	if _, err := h.sessions.CreateSession(r.Context(), w, user.ID, user.Username, user.Role, oldSessionID); err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create session", err)
		return
	}
	metrics.ActiveSessions.Inc()

	token, err := h.jwt.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue token", err)
		return
	}

	metrics.RecordLogin("success")
	respondSuccess(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.config.Security.SessionTimeout),
		Username:  user.Username,
		Role:      user.Role,
		UserID:    user.ID,
	}, start)
}

// Logout destroys the caller's session and clears the cookie. Always
// succeeds, even without a session.
//
// POST /api/v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if identity, ok := auth.IdentityFromContext(r.Context()); ok && identity.SessionID != "" {
		if err := h.sessions.DestroySession(r.Context(), w, identity.SessionID); err == nil {
			metrics.ActiveSessions.Dec()
		}
	} else {
		h.sessions.ClearSessionCookie(w)
	}

	respondSuccess(w, http.StatusOK, map[string]string{"message": "logged out"}, start)
}

// Me returns the authenticated user's account info.
//
// GET /api/v1/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Authentication required", nil)
		return
	}

	user, err := h.db.GetUserByID(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			// Account deleted while the session lived on.
			respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Account no longer exists", nil)
			return
		}
		respondDBError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, user.Info(), start)
}

// RevokeUserSessions destroys all sessions for the named user, forcing a
// fresh login everywhere. Admin only; the moderation path for a
// compromised or abusive account.
//
// DELETE /api/v1/admin/users/{id}/sessions
func (h *Handler) RevokeUserSessions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID := chi.URLParam(r, "id")
	if _, err := h.db.GetUserByID(r.Context(), userID); err != nil {
		respondDBError(w, err)
		return
	}

	count, err := h.sessions.RevokeUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke sessions", err)
		return
	}
	metrics.ActiveSessions.Sub(float64(count))

	logger := logging.WithComponent("api")
	logger.Info().
		Str("user_id", userID).
		Int("revoked", count).
		Msg("Admin revoked user sessions")
	respondSuccess(w, http.StatusOK, map[string]int{"revoked": count}, start)
}
