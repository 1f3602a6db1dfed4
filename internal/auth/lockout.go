// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mkaschke/bucketlist/internal/logging"
)

// Lockout errors
var (
	// ErrLockoutNotFound is returned when no lockout entry exists for a subject.
	ErrLockoutNotFound = errors.New("lockout entry not found")

	// ErrAccountLocked is returned when authentication is blocked by lockout.
	ErrAccountLocked = errors.New("account temporarily locked due to too many failed attempts")
)

// LockoutConfig controls the failed-login lockout behavior.
type LockoutConfig struct {
	// MaxAttempts is the number of failed attempts before lockout.
	MaxAttempts int

	// LockoutDuration is the base lockout period.
	LockoutDuration time.Duration

	// ExponentialBackoff doubles the lockout period on each repeat lockout.
	ExponentialBackoff bool

	// MaxLockoutDuration caps the backed-off lockout period.
	MaxLockoutDuration time.Duration

	// CleanupInterval is how often expired entries are pruned.
	CleanupInterval time.Duration

	// TrackByIP additionally counts failures per source IP, which catches
	// attackers rotating usernames.
	TrackByIP bool
}

// DefaultLockoutConfig returns the lockout defaults applied to login.
func DefaultLockoutConfig() *LockoutConfig {
	return &LockoutConfig{
		MaxAttempts:        5,
		LockoutDuration:    15 * time.Minute,
		ExponentialBackoff: true,
		MaxLockoutDuration: 24 * time.Hour,
		CleanupInterval:    5 * time.Minute,
		TrackByIP:          true,
	}
}

// LockoutEntry tracks failed login attempts for a subject, which is either
// a username or "ip:"-prefixed address.
type LockoutEntry struct {
	Subject        string    `json:"subject"`
	FailedAttempts int       `json:"failed_attempts"`
	LastAttempt    time.Time `json:"last_attempt"`
	LockoutCount   int       `json:"lockout_count"`
	LockedUntil    time.Time `json:"locked_until"`
	LastFailedIP   string    `json:"last_failed_ip,omitempty"`
}

// IsLocked returns true if the entry is currently locked out.
func (e *LockoutEntry) IsLocked() bool {
	return time.Now().Before(e.LockedUntil)
}

// LockoutStore persists lockout state.
type LockoutStore interface {
	// GetEntry retrieves a lockout entry by subject.
	// Returns ErrLockoutNotFound if no entry exists.
	GetEntry(ctx context.Context, subject string) (*LockoutEntry, error)

	// SaveEntry persists a lockout entry.
	SaveEntry(ctx context.Context, entry *LockoutEntry) error

	// DeleteEntry removes a lockout entry.
	DeleteEntry(ctx context.Context, subject string) error

	// CleanupExpired removes stale entries and returns the count removed.
	CleanupExpired(ctx context.Context) (int, error)
}

// LockoutManager applies the lockout policy on top of a LockoutStore.
type LockoutManager struct {
	config *LockoutConfig
	store  LockoutStore
}

// NewLockoutManager creates a lockout manager. A nil config uses defaults.
func NewLockoutManager(store LockoutStore, config *LockoutConfig) *LockoutManager {
	if config == nil {
		config = DefaultLockoutConfig()
	}
	return &LockoutManager{config: config, store: store}
}

// CheckLocked reports whether the subject is currently locked out and, if
// so, how long until the lock lifts.
func (m *LockoutManager) CheckLocked(ctx context.Context, subject string) (bool, time.Duration, error) {
	entry, err := m.store.GetEntry(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrLockoutNotFound) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("check lockout: %w", err)
	}

	if !entry.IsLocked() {
		return false, 0, nil
	}
	return true, time.Until(entry.LockedUntil), nil
}

// RecordFailedAttempt counts a failed login and reports whether the subject
// is now locked. The attempt is counted against the username and, when
// TrackByIP is set, against the source IP as well.
func (m *LockoutManager) RecordFailedAttempt(ctx context.Context, username, ip string) (locked bool, remaining time.Duration, err error) {
	locked, remaining, err = m.recordAttempt(ctx, username, ip)
	if err != nil || locked {
		return locked, remaining, err
	}

	if !m.config.TrackByIP || ip == "" {
		return false, 0, nil
	}
	return m.recordAttempt(ctx, ipSubject(ip), ip)
}

// ipSubject names the lockout entry that tracks a source IP, as opposed to
// the bare-username entries.
func ipSubject(ip string) string {
	return "ip:" + ip
}

// TracksIP reports whether per-IP lockout entries are maintained.
func (m *LockoutManager) TracksIP() bool {
	return m.config.TrackByIP
}

func (m *LockoutManager) recordAttempt(ctx context.Context, subject, ip string) (bool, time.Duration, error) {
	entry, err := m.store.GetEntry(ctx, subject)
	if err != nil {
		if !errors.Is(err, ErrLockoutNotFound) {
			return false, 0, fmt.Errorf("get entry: %w", err)
		}
		entry = &LockoutEntry{Subject: subject}
	}

	if entry.IsLocked() {
		return true, time.Until(entry.LockedUntil), nil
	}

	now := time.Now()
	entry.FailedAttempts++
	entry.LastAttempt = now
	entry.LastFailedIP = ip

	if entry.FailedAttempts < m.config.MaxAttempts {
		if err := m.store.SaveEntry(ctx, entry); err != nil {
			return false, 0, fmt.Errorf("save entry: %w", err)
		}
		return false, 0, nil
	}

	duration := m.lockoutDuration(entry.LockoutCount)
	entry.LockedUntil = now.Add(duration)
	entry.LockoutCount++
	entry.FailedAttempts = 0 // Reset for the next cycle

	logging.Warn().
		Str("subject", subject).
		Dur("duration", duration).
		Int("lockout_count", entry.LockoutCount).
		Msg("Account locked")

	if err := m.store.SaveEntry(ctx, entry); err != nil {
		return false, 0, fmt.Errorf("save locked entry: %w", err)
	}
	return true, duration, nil
}

// lockoutDuration computes the lockout period with optional exponential backoff.
func (m *LockoutManager) lockoutDuration(lockoutCount int) time.Duration {
	duration := m.config.LockoutDuration
	if !m.config.ExponentialBackoff || lockoutCount == 0 {
		return duration
	}

	duration = time.Duration(int64(duration) * int64(1<<lockoutCount))
	if duration > m.config.MaxLockoutDuration {
		return m.config.MaxLockoutDuration
	}
	return duration
}

// RecordSuccessfulLogin clears the failure state for a subject.
func (m *LockoutManager) RecordSuccessfulLogin(ctx context.Context, username string) error {
	if err := m.store.DeleteEntry(ctx, username); err != nil && !errors.Is(err, ErrLockoutNotFound) {
		return fmt.Errorf("clear lockout: %w", err)
	}
	return nil
}

// MemoryLockoutStore is an in-memory LockoutStore. Lockout state is
// intentionally ephemeral; a restart resets failure counters.
type MemoryLockoutStore struct {
	mu      sync.RWMutex
	entries map[string]*LockoutEntry
}

// NewMemoryLockoutStore creates a new in-memory lockout store.
func NewMemoryLockoutStore() *MemoryLockoutStore {
	return &MemoryLockoutStore{entries: make(map[string]*LockoutEntry)}
}

// GetEntry retrieves a lockout entry.
func (s *MemoryLockoutStore) GetEntry(ctx context.Context, subject string) (*LockoutEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[subject]
	if !ok {
		return nil, ErrLockoutNotFound
	}
	copied := *entry
	return &copied, nil
}

// SaveEntry persists a lockout entry.
func (s *MemoryLockoutStore) SaveEntry(ctx context.Context, entry *LockoutEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *entry
	s.entries[entry.Subject] = &copied
	return nil
}

// DeleteEntry removes a lockout entry.
func (s *MemoryLockoutStore) DeleteEntry(ctx context.Context, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[subject]; !ok {
		return ErrLockoutNotFound
	}
	delete(s.entries, subject)
	return nil
}

// CleanupExpired removes entries that are unlocked and have not seen an
// attempt in the last 24 hours.
func (s *MemoryLockoutStore) CleanupExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := time.Now().Add(-24 * time.Hour)
	count := 0
	for subject, entry := range s.entries {
		if !entry.IsLocked() && entry.LastAttempt.Before(threshold) {
			delete(s.entries, subject)
			count++
		}
	}
	return count, nil
}
