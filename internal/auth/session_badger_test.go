// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

func newTestBadgerStore(t *testing.T) *BadgerSessionStore {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("badger.Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("db.Close() error = %v", err)
		}
	})

	return NewBadgerSessionStore(db)
}

func TestBadgerSessionStoreRoundTrip(t *testing.T) {
	store := newTestBadgerStore(t)
	ctx := context.Background()

	session := NewSession("user-1", "alice", "admin", time.Hour)
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UserID != "user-1" || got.Username != "alice" || got.Role != "admin" {
		t.Errorf("Get() = %+v, want user-1/alice/admin", got)
	}
}

func TestBadgerSessionStoreGetMissing(t *testing.T) {
	store := newTestBadgerStore(t)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() = %v, want ErrSessionNotFound", err)
	}
}

func TestBadgerSessionStoreExpired(t *testing.T) {
	store := newTestBadgerStore(t)
	ctx := context.Background()

	session := NewSession("user-1", "alice", "user", -time.Minute)
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := store.Get(ctx, session.ID); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Get() = %v, want ErrSessionExpired", err)
	}

	count, err := store.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CleanupExpired() count = %d, want 1", count)
	}
}

func TestBadgerSessionStoreDelete(t *testing.T) {
	store := newTestBadgerStore(t)
	ctx := context.Background()

	session := NewSession("user-1", "alice", "user", time.Hour)
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.Delete(ctx, session.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() after delete = %v, want ErrSessionNotFound", err)
	}

	// Deleting a missing session is not an error.
	if err := store.Delete(ctx, session.ID); err != nil {
		t.Errorf("Delete() of missing session = %v, want nil", err)
	}
}

func TestBadgerSessionStoreDeleteByUserID(t *testing.T) {
	store := newTestBadgerStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := store.Create(ctx, NewSession("user-1", "alice", "user", time.Hour)); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	other := NewSession("user-2", "bob", "user", time.Hour)
	if err := store.Create(ctx, other); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	count, err := store.DeleteByUserID(ctx, "user-1")
	if err != nil {
		t.Fatalf("DeleteByUserID() error = %v", err)
	}
	if count != 2 {
		t.Errorf("DeleteByUserID() count = %d, want 2", count)
	}

	total, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if total != 1 {
		t.Errorf("Count() = %d, want 1", total)
	}
}

func TestBadgerSessionStoreTouch(t *testing.T) {
	store := newTestBadgerStore(t)
	ctx := context.Background()

	session := NewSession("user-1", "alice", "user", time.Minute)
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	newExpiry := time.Now().Add(3 * time.Hour)
	if err := store.Touch(ctx, session.ID, newExpiry); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}

	got, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	// JSON round trip loses the monotonic clock, compare unix seconds.
	if got.ExpiresAt.Unix() != newExpiry.Unix() {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, newExpiry)
	}

	if err := store.Touch(ctx, "missing", newExpiry); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Touch(missing) = %v, want ErrSessionNotFound", err)
	}
}
