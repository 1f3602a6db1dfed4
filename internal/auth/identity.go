// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package auth

import (
	"context"

	"github.com/mkaschke/bucketlist/internal/models"
)

type contextKey string

// identityContextKey stores the authenticated Identity in request contexts.
const identityContextKey contextKey = "auth_identity"

// Identity is the authenticated caller attached to a request context by the
// session or token middleware.
type Identity struct {
	UserID    string
	Username  string
	Role      string
	SessionID string
}

// IsAdmin returns true if the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// ContextWithIdentity returns a context carrying the identity.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext returns the authenticated identity. The second
// return is false for anonymous requests.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	return identity, ok && identity != nil
}
