// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package auth

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/mkaschke/bucketlist/internal/config"
)

// SessionStoreType selects the session storage backend.
type SessionStoreType string

const (
	// SessionStoreMemory keeps sessions in process memory (not persistent).
	SessionStoreMemory SessionStoreType = "memory"

	// SessionStoreBadger persists sessions in a BadgerDB at the configured path.
	SessionStoreBadger SessionStoreType = "badger"
)

// SessionStoreFactory owns the optional BadgerDB that backs persistent
// sessions. Close must be called at shutdown when the badger backend is used.
type SessionStoreFactory struct {
	db *badger.DB
}

// NewSessionStoreFactory opens the storage backend named in the security
// configuration. For "memory" no database is opened.
func NewSessionStoreFactory(cfg *config.SecurityConfig) (*SessionStoreFactory, error) {
	factory := &SessionStoreFactory{}

	if SessionStoreType(cfg.SessionStore) == SessionStoreBadger {
		opts := badger.DefaultOptions(cfg.SessionStorePath)
		opts.Logger = nil // Suppress BadgerDB's own logging

		db, err := badger.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("open badger db for sessions: %w", err)
		}
		factory.db = db
	}

	return factory, nil
}

// CreateStore returns the SessionStore for the opened backend.
func (f *SessionStoreFactory) CreateStore() SessionStore {
	if f.db != nil {
		return NewBadgerSessionStore(f.db)
	}
	return NewMemorySessionStore()
}

// Close closes the underlying BadgerDB if one was opened.
func (f *SessionStoreFactory) Close() error {
	if f.db != nil {
		return f.db.Close()
	}
	return nil
}
