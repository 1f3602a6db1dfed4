// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/mkaschke/bucketlist/internal/metrics"
)

// RateLimitConfig pairs a request budget with its window.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Per-route rate limit presets. Login is strictest to slow credential
// stuffing; health is loose enough for aggressive monitoring.
var (
	RateLimitLogin  = RateLimitConfig{Requests: 5, Window: 5 * time.Minute}
	RateLimitAuth   = RateLimitConfig{Requests: 5, Window: time.Minute}
	RateLimitWrite  = RateLimitConfig{Requests: 30, Window: time.Minute}
	RateLimitAPI    = RateLimitConfig{Requests: 100, Window: time.Minute}
	RateLimitHealth = RateLimitConfig{Requests: 1000, Window: time.Minute}
)

// ChiMiddleware builds the router's CORS and rate limiting middleware
// from configuration.
type ChiMiddleware struct {
	corsOrigins []string
	disabled    bool
}

// NewChiMiddleware creates the middleware factory. Rate limiting can be
// disabled wholesale for tests and local development.
func NewChiMiddleware(corsOrigins []string, rateLimitDisabled bool) *ChiMiddleware {
	return &ChiMiddleware{
		corsOrigins: corsOrigins,
		disabled:    rateLimitDisabled,
	}
}

// CORS returns the cross-origin middleware. With no configured origins
// all cross-origin requests are refused.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   m.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           86400,
	})
}

// RateLimit returns an IP-keyed limiter for the given preset, counting
// rejections in the rate limit metric.
func (m *ChiMiddleware) RateLimit(cfg RateLimitConfig, route string) func(http.Handler) http.Handler {
	if m.disabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.HTTPRateLimitHits.WithLabelValues(route).Inc()
			respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Too many requests", nil)
		}),
	)
}

// SecurityHeaders adds the standard hardening headers to API responses.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Cache-Control", "no-store")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	}
}
