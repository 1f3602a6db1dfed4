// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/mkaschke/bucketlist/internal/database"
	"github.com/mkaschke/bucketlist/internal/logging"
	"github.com/mkaschke/bucketlist/internal/models"
	"github.com/mkaschke/bucketlist/internal/validation"
)

// maxRequestBody caps JSON request bodies at 64KB. The largest legal
// payload is an item with a 2000-character description.
const maxRequestBody = 64 << 10

// sanitizeLogValue escapes control characters so attacker-supplied
// strings cannot forge log lines.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a wrapped JSON response.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondSuccess wraps data in the success envelope. start stamps the
// query time; pass the handler's entry time.
func respondSuccess(w http.ResponseWriter, status int, data interface{}, start time.Time) {
	respondJSON(w, status, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// respondError sends an error envelope and logs the underlying cause.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().
			Str("code", code).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API error")
	}

	respondJSON(w, status, &models.APIResponse{
		Status: "error",
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}

// respondValidationError maps field errors into the error envelope's
// details so clients can highlight the offending inputs.
func respondValidationError(w http.ResponseWriter, ve *validation.RequestValidationError) {
	details := make(map[string]interface{}, len(ve.Errors()))
	for field, msg := range ve.FieldMessages() {
		details[field] = msg
	}

	respondJSON(w, http.StatusBadRequest, &models.APIResponse{
		Status: "error",
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
		Error: &models.APIError{
			Code:    "VALIDATION_ERROR",
			Message: ve.Error(),
			Details: details,
		},
	})
}

// decodeJSON parses a size-capped request body, rejecting unknown
// fields so typos fail loudly instead of silently dropping data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err)
		return err
	}
	return nil
}

// validateRequest runs struct validation and writes the 400 itself.
// Returns false when the request was rejected.
func validateRequest(w http.ResponseWriter, v interface{}) bool {
	if ve := validation.ValidateStruct(v); ve != nil {
		respondValidationError(w, ve)
		return false
	}
	return true
}

// getIntParam reads an integer query parameter, falling back to def on
// absence or garbage.
func getIntParam(r *http.Request, key string, def int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return n
}

// pagination clamps limit/offset query parameters to the configured
// page bounds.
func (h *Handler) pagination(r *http.Request) (limit, offset int) {
	def, max := h.config.API.DefaultPageSize, h.config.API.MaxPageSize
	if def <= 0 {
		def = 20
	}
	if max <= 0 {
		max = 100
	}

	limit = getIntParam(r, "limit", def)
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}

	offset = getIntParam(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// respondDBError translates storage sentinel errors into API errors.
func respondDBError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrItemNotFound),
		errors.Is(err, database.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, database.ErrDuplicateUsername),
		errors.Is(err, database.ErrDuplicateEmail):
		respondError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", err)
	}
}
