// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package auth

import (
	"fmt"
	"strings"
	"unicode"
)

// PasswordPolicy defines minimum password strength for registration.
type PasswordPolicy struct {
	// MinLength is the minimum password length in bytes.
	MinLength int

	// RequireLetter requires at least one letter.
	RequireLetter bool

	// RequireDigit requires at least one digit.
	RequireDigit bool

	// ForbidCommonPasswords rejects passwords from the breached list.
	ForbidCommonPasswords bool

	// ForbidUsernameSimilarity rejects passwords containing the username
	// or its reverse.
	ForbidUsernameSimilarity bool
}

// DefaultPasswordPolicy returns the policy applied to self-service signup.
// NIST SP 800-63B favors length and breach checks over composition rules,
// so only a light letter+digit requirement is kept.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:                8,
		RequireLetter:            true,
		RequireDigit:             true,
		ForbidCommonPasswords:    true,
		ForbidUsernameSimilarity: true,
	}
}

// Validate checks a candidate password against the policy. The returned
// error message is safe to show to the end user on the registration form.
func (p PasswordPolicy) Validate(password, username string) error {
	var problems []string

	if len(password) < p.MinLength {
		problems = append(problems, fmt.Sprintf("password must be at least %d characters", p.MinLength))
	}

	hasLetter, hasDigit := false, false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if p.RequireLetter && !hasLetter {
		problems = append(problems, "password must contain at least one letter")
	}
	if p.RequireDigit && !hasDigit {
		problems = append(problems, "password must contain at least one digit")
	}

	if p.ForbidCommonPasswords && isCommonPassword(password) {
		problems = append(problems, "password is too common and easily guessable")
	}

	if p.ForbidUsernameSimilarity && username != "" && isSimilarToUsername(password, username) {
		problems = append(problems, "password is too similar to username")
	}

	if len(problems) > 0 {
		return &PolicyError{Problems: problems}
	}
	return nil
}

// PolicyError reports why a password was rejected. The message is safe
// to show to the end user on the registration form.
type PolicyError struct {
	Problems []string
}

func (e *PolicyError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// isCommonPassword checks the candidate against frequently breached
// passwords, including project-adjacent words people reach for first.
func isCommonPassword(password string) bool {
	lower := strings.ToLower(password)
	common := map[string]bool{
		"123456":      true,
		"12345678":    true,
		"123456789":   true,
		"1234567890":  true,
		"password":    true,
		"password1":   true,
		"password123": true,
		"passw0rd":    true,
		"p@ssw0rd":    true,
		"qwerty":      true,
		"qwerty123":   true,
		"qwertyuiop":  true,
		"abc123":      true,
		"abcd1234":    true,
		"letmein":     true,
		"welcome":     true,
		"welcome1":    true,
		"iloveyou":    true,
		"sunshine":    true,
		"trustno1":    true,
		"dragon":      true,
		"monkey":      true,
		"master":      true,
		"shadow":      true,
		"111111":      true,
		"11111111":    true,
		"000000":      true,
		"654321":      true,
		"123123":      true,
		"1q2w3e4r":    true,
		"1qaz2wsx":    true,
		"admin":       true,
		"admin123":    true,
		"changeme":    true,
		"default":     true,
		"secret":      true,
		"test123":     true,
		"testing123":  true,
		"bucketlist":  true,
		"bucket123":   true,
		"mygoals":     true,
		"goals123":    true,
	}
	return common[lower]
}

// isSimilarToUsername rejects passwords that embed the username, its
// reverse, or a leetspeak substitution of it.
func isSimilarToUsername(password, username string) bool {
	lowerPass := strings.ToLower(password)
	lowerUser := strings.ToLower(username)

	if strings.Contains(lowerPass, lowerUser) || strings.Contains(lowerUser, lowerPass) {
		return true
	}

	if strings.Contains(lowerPass, reverseString(lowerUser)) {
		return true
	}

	substitutions := map[rune]rune{
		'a': '@', 'e': '3', 'i': '1', 'o': '0', 's': '$', 't': '7',
	}
	substituted := strings.Map(func(r rune) rune {
		if sub, ok := substitutions[r]; ok {
			return sub
		}
		return r
	}, lowerUser)
	return strings.Contains(lowerPass, substituted)
}

func reverseString(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
