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

	"github.com/mkaschke/bucketlist/internal/config"
	"github.com/mkaschke/bucketlist/internal/database"
	"github.com/mkaschke/bucketlist/internal/models"
)

func newTestService(t *testing.T, mutate func(*config.SecurityConfig)) *Service {
	t.Helper()

	db, err := database.New(&config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "256MB",
		Threads:   2,
	})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("db.Close() error = %v", err)
		}
	})

	cfg := &config.SecurityConfig{
		RegistrationEnabled:    true,
		RegistrationRatePerMin: 600,
		RegistrationBurst:      100,
	}
	if mutate != nil {
		mutate(cfg)
	}

	lockout := NewLockoutManager(NewMemoryLockoutStore(), &LockoutConfig{
		MaxAttempts:     3,
		LockoutDuration: 15 * time.Minute,
		TrackByIP:       true,
	})
	return NewService(db, lockout, cfg)
}

func registerTestUser(t *testing.T, svc *Service, username, password string) *models.User {
	t.Helper()
	user, err := svc.Register(context.Background(), &models.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: password,
	})
	if err != nil {
		t.Fatalf("Register(%q) error = %v", username, err)
	}
	return user
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	user := registerTestUser(t, svc, "alice", "climb everest 2030")
	if user.ID == "" {
		t.Error("registered user has empty ID")
	}
	if user.Role != models.RoleUser {
		t.Errorf("Role = %q, want user", user.Role)
	}

	got, err := svc.Login(ctx, "alice", "climb everest 2030", "")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("Login() ID = %q, want %q", got.ID, user.ID)
	}
}

func TestRegisterNormalizesUsername(t *testing.T) {
	svc := newTestService(t, nil)

	user := registerTestUser(t, svc, "  Alice ", "climb everest 2030")
	if user.Username != "alice" {
		t.Errorf("Username = %q, want alice", user.Username)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	registerTestUser(t, svc, "alice", "climb everest 2030")

	_, err := svc.Register(ctx, &models.RegisterRequest{
		Username: "alice",
		Email:    "other@example.com",
		Password: "sail the pacific 7",
	})
	if !errors.Is(err, database.ErrDuplicateUsername) {
		t.Errorf("Register() = %v, want ErrDuplicateUsername", err)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.Register(context.Background(), &models.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	if err == nil {
		t.Error("Register() accepted a common password")
	}
}

func TestRegisterDisabled(t *testing.T) {
	svc := newTestService(t, func(cfg *config.SecurityConfig) {
		cfg.RegistrationEnabled = false
	})

	_, err := svc.Register(context.Background(), &models.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "climb everest 2030",
	})
	if !errors.Is(err, ErrRegistrationDisabled) {
		t.Errorf("Register() = %v, want ErrRegistrationDisabled", err)
	}
}

func TestRegisterThrottled(t *testing.T) {
	svc := newTestService(t, func(cfg *config.SecurityConfig) {
		cfg.RegistrationRatePerMin = 0.001
		cfg.RegistrationBurst = 1
	})
	ctx := context.Background()

	registerTestUser(t, svc, "first", "climb everest 2030")

	_, err := svc.Register(ctx, &models.RegisterRequest{
		Username: "second",
		Email:    "second@example.com",
		Password: "sail the pacific 7",
	})
	if !errors.Is(err, ErrRegistrationThrottled) {
		t.Errorf("Register() = %v, want ErrRegistrationThrottled", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	registerTestUser(t, svc, "alice", "climb everest 2030")

	_, err := svc.Login(ctx, "alice", "not the password 1", "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginUnknownUserSameError(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.Login(context.Background(), "ghost", "whatever123", "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login(unknown user) = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginLocksAfterRepeatedFailures(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	registerTestUser(t, svc, "alice", "climb everest 2030")

	var lastErr error
	for i := 0; i < 3; i++ {
		_, lastErr = svc.Login(ctx, "alice", "wrong password 9", "")
	}
	if !errors.Is(lastErr, ErrAccountLocked) {
		t.Fatalf("third failure = %v, want ErrAccountLocked", lastErr)
	}

	// Even the correct password is rejected while locked.
	_, err := svc.Login(ctx, "alice", "climb everest 2030", "")
	if !errors.Is(err, ErrAccountLocked) {
		t.Errorf("Login() while locked = %v, want ErrAccountLocked", err)
	}
}

func TestLoginPromotesConfiguredAdmin(t *testing.T) {
	svc := newTestService(t, func(cfg *config.SecurityConfig) {
		cfg.AdminUsernames = []string{"Alice"}
	})
	ctx := context.Background()

	registerTestUser(t, svc, "alice", "climb everest 2030")

	user, err := svc.Login(ctx, "alice", "climb everest 2030", "")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if user.Role != models.RoleAdmin {
		t.Errorf("Role = %q, want admin", user.Role)
	}
}

func TestLoginBlockedForLockedIP(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	registerTestUser(t, svc, "alice", "climb everest 2030")

	// Rotating usernames from one address locks the address itself.
	for _, name := range []string{"ghost1", "ghost2", "ghost3"} {
		_, _ = svc.Login(ctx, name, "wrong password 9", "203.0.113.7")
	}

	// Correct credentials from the locked address are still rejected.
	_, err := svc.Login(ctx, "alice", "climb everest 2030", "203.0.113.7")
	if !errors.Is(err, ErrAccountLocked) {
		t.Errorf("Login() from locked IP = %v, want ErrAccountLocked", err)
	}

	// A different address is unaffected.
	if _, err := svc.Login(ctx, "alice", "climb everest 2030", "198.51.100.4"); err != nil {
		t.Errorf("Login() from clean IP error = %v", err)
	}
}
