// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package web

import (
	"errors"
	"net/http"

	"github.com/mkaschke/bucketlist/internal/auth"
	"github.com/mkaschke/bucketlist/internal/database"
	"github.com/mkaschke/bucketlist/internal/metrics"
	"github.com/mkaschke/bucketlist/internal/models"
	"github.com/mkaschke/bucketlist/internal/validation"
)

// Home renders the dashboard for logged-in users and the landing page
// for everyone else.
func (s *Server) Home(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		s.render(w, r, http.StatusOK, "home", &pageData{Title: "Welcome"})
		return
	}

	stats, err := s.db.GetUserStats(r.Context(), id.UserID)
	if err != nil {
		s.renderError(w, r, http.StatusInternalServerError, "Could not load your dashboard.")
		return
	}
	activity, err := s.db.GetRecentActivity(r.Context(), id.UserID, 10)
	if err != nil {
		s.renderError(w, r, http.StatusInternalServerError, "Could not load your dashboard.")
		return
	}

	s.render(w, r, http.StatusOK, "home", &pageData{
		Title: "Dashboard",
		Data: map[string]interface{}{
			"Stats":    stats,
			"Activity": activity,
		},
	})
}

// LoginForm renders the login page.
func (s *Server) LoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.IdentityFromContext(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login", &pageData{Title: "Log in"})
}

// LoginSubmit verifies credentials and establishes the session.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Could not read the form.")
		return
	}

	req := models.LoginRequest{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	form := formValues{Username: req.Username}

	if ve := validation.ValidateStruct(&req); ve != nil {
		s.render(w, r, http.StatusBadRequest, "login", &pageData{
			Title:       "Log in",
			Form:        form,
			FieldErrors: ve.FieldMessages(),
		})
		return
	}

	user, err := s.service.Login(r.Context(), req.Username, req.Password, clientIP(r))
	if err != nil {
		metrics.RecordLogin("failure")
		message := "Invalid username or password."
		if errors.Is(err, auth.ErrAccountLocked) {
			message = "Too many failed attempts. Try again later."
		}
		s.render(w, r, http.StatusUnauthorized, "login", &pageData{
			Title: "Log in",
			Form:  form,
			Error: message,
		})
		return
	}

	oldSessionID := ""
	if cookie, err := r.Cookie(s.sessions.CookieName()); err == nil {
		oldSessionID = cookie.Value
	}
	if _, err := s.sessions.CreateSession(r.Context(), w, user.ID, user.Username, user.Role, oldSessionID); err != nil {
		s.renderError(w, r, http.StatusInternalServerError, "Could not start your session.")
		return
	}

	metrics.RecordLogin("success")
	metrics.ActiveSessions.Inc()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RegisterForm renders the signup page.
func (s *Server) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.IdentityFromContext(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "register", &pageData{Title: "Sign up"})
}

// RegisterSubmit creates the account and logs the new user straight in.
func (s *Server) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Could not read the form.")
		return
	}

	req := models.RegisterRequest{
		Username: r.PostFormValue("username"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	form := formValues{Username: req.Username, Email: req.Email}

	if ve := validation.ValidateStruct(&req); ve != nil {
		metrics.RecordRegistration("invalid")
		s.render(w, r, http.StatusBadRequest, "register", &pageData{
			Title:       "Sign up",
			Form:        form,
			FieldErrors: ve.FieldMessages(),
		})
		return
	}

	user, err := s.service.Register(r.Context(), &req)
	if err != nil {
		metrics.RecordRegistration("failure")
		s.render(w, r, http.StatusBadRequest, "register", &pageData{
			Title: "Sign up",
			Form:  form,
			Error: registerErrorMessage(err),
		})
		return
	}

	metrics.RecordRegistration("success")
	if _, err := s.sessions.CreateSession(r.Context(), w, user.ID, user.Username, user.Role, ""); err != nil {
		// Account exists; let them log in manually.
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	metrics.ActiveSessions.Inc()

	http.Redirect(w, r, "/?flash=registered", http.StatusSeeOther)
}

// registerErrorMessage maps registration failures to text safe to show
// on the form.
func registerErrorMessage(err error) string {
	var policyErr *auth.PolicyError
	switch {
	case errors.Is(err, auth.ErrRegistrationDisabled):
		return "Signups are currently disabled."
	case errors.Is(err, auth.ErrRegistrationThrottled):
		return "Too many signups right now. Try again in a minute."
	case errors.As(err, &policyErr):
		return policyErr.Error()
	case errors.Is(err, database.ErrDuplicateUsername):
		return "That username is taken."
	case errors.Is(err, database.ErrDuplicateEmail):
		return "That email is already registered."
	default:
		return "Could not create the account. Try again."
	}
}

// Logout destroys the session and returns to the landing page.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if id, ok := auth.IdentityFromContext(r.Context()); ok && id.SessionID != "" {
		if err := s.sessions.DestroySession(r.Context(), w, id.SessionID); err == nil {
			metrics.ActiveSessions.Dec()
		}
	} else {
		s.sessions.ClearSessionCookie(w)
	}
	http.Redirect(w, r, "/?flash=loggedout", http.StatusSeeOther)
}
