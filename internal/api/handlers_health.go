// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package api

import (
	"net/http"
	"time"
)

var startTime = time.Now()

// Health reports overall service health including database reachability.
//
// GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	status := "healthy"
	code := http.StatusOK
	dbStatus := "up"
	if err := h.db.Ping(r.Context()); err != nil {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
		dbStatus = "down"
	}

	respondSuccess(w, code, map[string]interface{}{
		"status":         status,
		"version":        h.version,
		"uptime_seconds": int64(time.Since(startTime).Seconds()),
		"database":       dbStatus,
	}, start)
}

// HealthLive is the liveness probe. It answers as long as the process
// can serve HTTP at all.
//
// GET /api/v1/health/live
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]string{"status": "alive"}, time.Now())
}

// HealthReady is the readiness probe. It fails while the database is
// unreachable.
//
// GET /api/v1/health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := h.db.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "Database unavailable", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]string{"status": "ready"}, start)
}
