// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

// Package auth provides credential hashing, session management, account
// lockout, and the HTTP middleware that enforces them.
package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost balances hashing latency against brute-force resistance.
// Cost 12 keeps a single hash under ~250ms on commodity hardware.
const bcryptCost = 12

// ErrInvalidCredentials is returned when a password does not match the
// stored hash. Callers must not distinguish between unknown-user and
// wrong-password to avoid leaking which usernames exist.
var ErrInvalidCredentials = errors.New("invalid username or password")

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a stored bcrypt hash.
// The comparison itself is constant time.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// dummyHash is a throwaway hash for the unknown-username login path,
// computed lazily so the cost is only paid on first use.
var dummyHash = sync.OnceValue(func() string {
	hash, err := HashPassword("login timing placeholder")
	if err != nil {
		panic(err)
	}
	return hash
})

// CheckDummyPassword burns a bcrypt comparison against a throwaway hash.
// Login calls this when the username does not exist so the unknown-user
// path costs the same as a real password check and response timing does
// not reveal which accounts exist.
func CheckDummyPassword(password string) {
	//nolint:errcheck // the result is discarded on purpose
	bcrypt.CompareHashAndPassword([]byte(dummyHash()), []byte(password))
}
