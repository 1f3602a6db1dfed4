// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mkaschke/bucketlist/internal/config"
	"github.com/mkaschke/bucketlist/internal/database"
	"github.com/mkaschke/bucketlist/internal/logging"
	"github.com/mkaschke/bucketlist/internal/models"
)

// Service errors
var (
	// ErrRegistrationDisabled is returned when self-service signup is off.
	ErrRegistrationDisabled = errors.New("registration is disabled")

	// ErrRegistrationThrottled is returned when the global signup rate is exceeded.
	ErrRegistrationThrottled = errors.New("too many registrations, try again later")
)

// Service implements account registration and credential verification on
// top of the user store, password policy, and lockout manager.
type Service struct {
	db      *database.DB
	policy  PasswordPolicy
	lockout *LockoutManager
	admins  map[string]bool

	registrationEnabled bool
	signupLimiter       *rate.Limiter
}

// NewService builds the auth service from the security configuration.
func NewService(db *database.DB, lockout *LockoutManager, cfg *config.SecurityConfig) *Service {
	admins := make(map[string]bool, len(cfg.AdminUsernames))
	for _, name := range cfg.AdminUsernames {
		admins[strings.ToLower(strings.TrimSpace(name))] = true
	}

	perMin := cfg.RegistrationRatePerMin
	if perMin <= 0 {
		perMin = 10
	}
	burst := cfg.RegistrationBurst
	if burst <= 0 {
		burst = 5
	}

	return &Service{
		db:                  db,
		policy:              DefaultPasswordPolicy(),
		lockout:             lockout,
		admins:              admins,
		registrationEnabled: cfg.RegistrationEnabled,
		signupLimiter:       rate.NewLimiter(rate.Limit(float64(perMin)/60.0), burst),
	}
}

// Register creates a new account. The request must already have passed
// structural validation; this applies the password policy, the global
// signup throttle, and persists the bcrypt hash.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if !s.registrationEnabled {
		return nil, ErrRegistrationDisabled
	}
	if !s.signupLimiter.Allow() {
		return nil, ErrRegistrationThrottled
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if err := s.policy.Validate(req.Password, username); err != nil {
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         s.roleFor(username),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.db.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	logging.Info().Str("username", user.Username).Str("user_id", user.ID).Msg("User registered")
	return user, nil
}

// Login verifies credentials and returns the account. Lockout state is
// checked before the password and updated after, and unknown usernames
// produce the same ErrInvalidCredentials as a wrong password.
func (s *Service) Login(ctx context.Context, username, password, ip string) (*models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	// A lock on either the username or the source IP blocks the attempt,
	// so rotating usernames from a locked address does not help.
	subjects := []string{username}
	if s.lockout.TracksIP() && ip != "" {
		subjects = append(subjects, ipSubject(ip))
	}
	for _, subject := range subjects {
		locked, remaining, err := s.lockout.CheckLocked(ctx, subject)
		if err != nil {
			return nil, err
		}
		if locked {
			return nil, fmt.Errorf("%w: retry in %s", ErrAccountLocked, remaining.Round(time.Second))
		}
	}

	user, err := s.db.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			CheckDummyPassword(password)
			return nil, s.failLogin(ctx, username, ip)
		}
		return nil, err
	}

	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return nil, s.failLogin(ctx, username, ip)
	}

	if err := s.lockout.RecordSuccessfulLogin(ctx, username); err != nil {
		logging.Error().Err(err).Str("username", username).Msg("Failed to clear lockout state")
	}

	// Admin status follows the configured list; persist a promotion or
	// demotion so the stored role matches.
	if effective := s.roleFor(username); effective != user.Role {
		if err := s.db.UpdateUserRole(ctx, user.ID, effective); err != nil {
			logging.Error().Err(err).Str("username", username).Msg("Failed to update user role")
		} else {
			user.Role = effective
		}
	}

	return user, nil
}

// failLogin records the failure and maps it to the caller-facing error.
func (s *Service) failLogin(ctx context.Context, username, ip string) error {
	locked, remaining, err := s.lockout.RecordFailedAttempt(ctx, username, ip)
	if err != nil {
		logging.Error().Err(err).Str("username", username).Msg("Failed to record login failure")
	}
	if locked {
		return fmt.Errorf("%w: retry in %s", ErrAccountLocked, remaining.Round(time.Second))
	}
	return ErrInvalidCredentials
}

func (s *Service) roleFor(username string) string {
	if s.admins[username] {
		return models.RoleAdmin
	}
	return models.RoleUser
}
