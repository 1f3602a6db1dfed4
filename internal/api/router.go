// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkaschke/bucketlist/internal/auth"
	"github.com/mkaschke/bucketlist/internal/middleware"
)

// Router assembles the HTTP routing tree.
type Router struct {
	handler       *Handler
	authMW        *auth.Middleware
	chiMiddleware *ChiMiddleware

	// web serves the HTML pages on all routes the API doesn't claim.
	// Nil disables the web UI.
	web http.Handler
}

// NewRouter wires the routing dependencies together.
func NewRouter(handler *Handler, authMW *auth.Middleware, chiMW *ChiMiddleware, web http.Handler) *Router {
	return &Router{
		handler:       handler,
		authMW:        authMW,
		chiMiddleware: chiMW,
		web:           web,
	}
}

// Setup builds the complete routing tree: JSON API under /api/v1,
// Prometheus metrics at /metrics, HTML pages everywhere else.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.Compression)

	// Health probes stay unauthenticated for monitoring.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit(RateLimitHealth, "health"))
		r.Use(SecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit(RateLimitAuth, "auth"))
		r.Use(SecurityHeaders())
		r.Use(middleware.PrometheusMetrics)

		r.With(router.chiMiddleware.RateLimit(RateLimitLogin, "login")).
			Post("/login", router.handler.Login)
		r.Post("/register", router.handler.Register)

		r.Group(func(r chi.Router) {
			r.Use(router.authMW.Authenticate)
			r.Post("/logout", router.handler.Logout)
			r.With(router.authMW.RequireAuth).Get("/me", router.handler.Me)
		})
	})

	// The explore feed is the one public data endpoint.
	r.Route("/api/v1/explore", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit(RateLimitAPI, "explore"))
		r.Use(SecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Get("/", router.handler.Explore)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit(RateLimitAPI, "api"))
		r.Use(SecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.authMW.Authenticate)
		r.Use(router.authMW.RequireAuth)

		r.Get("/items", router.handler.ListItems)
		r.Get("/items/{id}", router.handler.GetItem)
		r.Get("/stats", router.handler.Stats)
		r.Get("/activity", router.handler.Activity)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit(RateLimitWrite, "write"))
			r.Post("/items", router.handler.CreateItem)
			r.Patch("/items/{id}", router.handler.UpdateItem)
			r.Delete("/items/{id}", router.handler.DeleteItem)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(router.authMW.RequireAdmin)
			r.Delete("/users/{id}/sessions", router.handler.RevokeUserSessions)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	// HTML pages catch everything else.
	if router.web != nil {
		r.Group(func(r chi.Router) {
			r.Use(router.authMW.Authenticate)
			r.Handle("/*", router.web)
		})
	}

	return r
}
