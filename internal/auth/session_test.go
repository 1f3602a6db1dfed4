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
)

func TestMemorySessionStoreCreateGet(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	session := NewSession("user-1", "alice", "user", time.Hour)
	if session.ID == "" {
		t.Fatal("NewSession() produced an empty ID")
	}

	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UserID != "user-1" || got.Username != "alice" || got.Role != "user" {
		t.Errorf("Get() = %+v, want user-1/alice/user", got)
	}

	// Mutating the returned session must not affect the stored copy.
	got.Username = "mallory"
	again, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if again.Username != "alice" {
		t.Error("stored session was mutated through a returned copy")
	}
}

func TestMemorySessionStoreGetMissing(t *testing.T) {
	store := NewMemorySessionStore()

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() = %v, want ErrSessionNotFound", err)
	}
}

func TestMemorySessionStoreGetExpired(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	session := NewSession("user-1", "alice", "user", -time.Minute)
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err := store.Get(ctx, session.ID)
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Get() = %v, want ErrSessionExpired", err)
	}
}

func TestMemorySessionStoreTouch(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	session := NewSession("user-1", "alice", "user", time.Minute)
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	newExpiry := time.Now().Add(2 * time.Hour)
	if err := store.Touch(ctx, session.ID, newExpiry); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}

	got, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.ExpiresAt.Equal(newExpiry) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, newExpiry)
	}

	if err := store.Touch(ctx, "missing", newExpiry); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Touch(missing) = %v, want ErrSessionNotFound", err)
	}
}

func TestMemorySessionStoreDeleteByUserID(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
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
	if count != 3 {
		t.Errorf("DeleteByUserID() count = %d, want 3", count)
	}

	if _, err := store.Get(ctx, other.ID); err != nil {
		t.Errorf("other user's session was deleted: %v", err)
	}
}

func TestMemorySessionStoreCleanupExpired(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	live := NewSession("user-1", "alice", "user", time.Hour)
	dead := NewSession("user-2", "bob", "user", -time.Minute)
	for _, s := range []*Session{live, dead} {
		if err := store.Create(ctx, s); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	count, err := store.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CleanupExpired() count = %d, want 1", count)
	}

	if _, err := store.Get(ctx, live.ID); err != nil {
		t.Errorf("live session was removed: %v", err)
	}
}

func TestGenerateSessionIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateSessionID()
		if len(id) != 64 {
			t.Fatalf("session ID length = %d, want 64 hex chars", len(id))
		}
		if seen[id] {
			t.Fatal("duplicate session ID generated")
		}
		seen[id] = true
	}
}
