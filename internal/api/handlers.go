// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

// Package api serves the JSON API under /api/v1.
package api

import (
	"net"
	"net/http"

	"github.com/mkaschke/bucketlist/internal/auth"
	"github.com/mkaschke/bucketlist/internal/config"
	"github.com/mkaschke/bucketlist/internal/database"
	"github.com/mkaschke/bucketlist/internal/events"
)

// Handler holds the dependencies shared by all API endpoints.
type Handler struct {
	db        *database.DB
	service   *auth.Service
	sessions  *auth.Middleware
	jwt       *auth.JWTManager
	publisher *events.Publisher
	config    *config.Config
	version   string
}

// HandlerOptions collects the dependencies for NewHandler.
type HandlerOptions struct {
	DB        *database.DB
	Service   *auth.Service
	Sessions  *auth.Middleware
	JWT       *auth.JWTManager
	Publisher *events.Publisher
	Config    *config.Config
	Version   string
}

// NewHandler creates the API handler set.
func NewHandler(opts HandlerOptions) *Handler {
	return &Handler{
		db:        opts.DB,
		service:   opts.Service,
		sessions:  opts.Sessions,
		jwt:       opts.JWT,
		publisher: opts.Publisher,
		config:    opts.Config,
		version:   opts.Version,
	}
}

// clientIP extracts the caller's address for lockout tracking. The
// router applies chi's RealIP middleware first, so RemoteAddr already
// reflects X-Forwarded-For when a trusted proxy set it.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
