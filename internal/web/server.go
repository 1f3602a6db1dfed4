// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package web

import (
	"bytes"
	"io/fs"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkaschke/bucketlist/internal/auth"
	"github.com/mkaschke/bucketlist/internal/config"
	"github.com/mkaschke/bucketlist/internal/database"
	"github.com/mkaschke/bucketlist/internal/events"
	"github.com/mkaschke/bucketlist/internal/logging"
)

// Server renders the HTML pages. It shares the storage and auth layers
// with the JSON API but speaks forms and redirects instead of JSON.
type Server struct {
	db        *database.DB
	service   *auth.Service
	sessions  *auth.Middleware
	csrf      *auth.CSRFMiddleware
	publisher *events.Publisher
	config    *config.Config
	templates *templates
}

// ServerOptions collects the dependencies for NewServer.
type ServerOptions struct {
	DB        *database.DB
	Service   *auth.Service
	Sessions  *auth.Middleware
	CSRF      *auth.CSRFMiddleware
	Publisher *events.Publisher
	Config    *config.Config
}

// NewServer parses the embedded templates and builds the page server.
func NewServer(opts ServerOptions) (*Server, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	return &Server{
		db:        opts.DB,
		service:   opts.Service,
		sessions:  opts.Sessions,
		csrf:      opts.CSRF,
		publisher: opts.Publisher,
		config:    opts.Config,
		templates: tmpl,
	}, nil
}

// Routes returns the page routing tree. The caller mounts it behind the
// session middleware; CSRF protection is applied here.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.csrf.Protect)

	r.Get("/", s.Home)

	r.Get("/login", s.LoginForm)
	r.Post("/login", s.LoginSubmit)
	r.Get("/register", s.RegisterForm)
	r.Post("/register", s.RegisterSubmit)
	r.Post("/logout", s.Logout)

	r.Get("/items", s.ItemsList)
	r.Get("/items/new", s.ItemNewForm)
	r.Post("/items", s.ItemCreate)
	r.Get("/items/{id}/edit", s.ItemEditForm)
	r.Post("/items/{id}", s.ItemUpdate)
	r.Post("/items/{id}/complete", s.ItemComplete)
	r.Post("/items/{id}/delete", s.ItemDelete)

	r.Get("/stats", s.StatsPage)
	r.Get("/explore", s.ExplorePage)

	static, err := fs.Sub(staticFS, "static")
	if err == nil {
		r.Handle("/static/*", http.StripPrefix("/static/",
			cacheStatic(http.FileServer(http.FS(static)))))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusNotFound, "That page does not exist.")
	})

	return r
}

// cacheStatic sets a long cache lifetime on the embedded assets.
func cacheStatic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=86400")
		next.ServeHTTP(w, r)
	})
}

// pageData is the payload every template receives.
type pageData struct {
	Title       string
	Identity    *auth.Identity
	CSRFToken   string
	Flash       string
	Error       string
	FieldErrors map[string]string
	Form        formValues
	Data        interface{}
}

// formValues echoes submitted auth form fields back into the page so
// the user does not retype them after a validation error.
type formValues struct {
	Username string
	Email    string
}

// render executes the named page template. Output is buffered so a
// template failure can still produce a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data *pageData) {
	tmpl, ok := s.templates.pages[page]
	if !ok {
		logging.Error().Str("page", page).Msg("Unknown page template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if data.Identity == nil {
		if id, ok := auth.IdentityFromContext(r.Context()); ok {
			data.Identity = id
		}
	}
	if data.CSRFToken == "" {
		data.CSRFToken = s.csrf.Token(w, r)
	}
	if data.Flash == "" {
		data.Flash = flashMessage(r)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		logging.Error().Err(err).Str("page", page).Msg("Failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logging.Error().Err(err).Str("page", page).Msg("Failed to write page")
	}
}

// renderError shows the generic error page.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, "error", &pageData{
		Title: http.StatusText(status),
		Data: map[string]interface{}{
			"Code":    status,
			"Message": message,
		},
	})
}

// flash query values map to one-line notices after redirects.
var flashMessages = map[string]string{
	"registered": "Welcome! Your account is ready.",
	"created":    "Goal added.",
	"updated":    "Goal updated.",
	"completed":  "Nice. Goal completed!",
	"deleted":    "Goal deleted.",
	"loggedout":  "You are logged out.",
}

func flashMessage(r *http.Request) string {
	return flashMessages[r.URL.Query().Get("flash")]
}

// requireIdentity redirects anonymous visitors to the login page.
func (s *Server) requireIdentity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return nil, false
	}
	return id, true
}

// clientIP extracts the caller's address for lockout tracking.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
