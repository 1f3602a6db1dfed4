// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

// Package config provides layered configuration loading for Bucketlist.
//
// Configuration is resolved in three layers, later layers overriding
// earlier ones: built-in defaults, an optional YAML file, then environment
// variables. See LoadWithKoanf for details.
package config

import "time"

// Config is the root configuration for the server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	API      APIConfig      `koanf:"api"`
	Events   EventsConfig   `koanf:"events"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `koanf:"host"`

	// Port is the listen port.
	Port int `koanf:"port"`

	// Timeout applies to request reads and writes.
	Timeout time.Duration `koanf:"timeout"`

	// Environment is "development" or "production". Production tightens
	// validation (secrets required, secure cookies).
	Environment string `koanf:"environment"`
}

// DatabaseConfig holds embedded DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file location. Use ":memory:" for tests.
	Path string `koanf:"path"`

	// MaxMemory limits DuckDB memory usage, e.g. "1GB".
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 means runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// SecurityConfig holds authentication and transport security settings.
type SecurityConfig struct {
	// JWTSecret signs API tokens. Must be at least 32 characters.
	JWTSecret string `koanf:"jwt_secret"`

	// SessionTimeout is how long a browser session stays valid.
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// SessionStore selects the session backend: "memory" or "badger".
	SessionStore string `koanf:"session_store"`

	// SessionStorePath is the BadgerDB directory when SessionStore is "badger".
	SessionStorePath string `koanf:"session_store_path"`

	// AdminUsernames lists accounts granted the admin role at login.
	AdminUsernames []string `koanf:"admin_usernames"`

	// RegistrationEnabled allows new account signup.
	RegistrationEnabled bool `koanf:"registration_enabled"`

	// RegistrationRatePerMin caps new signups across all clients.
	RegistrationRatePerMin float64 `koanf:"registration_rate_per_min"`

	// RegistrationBurst is the signup token bucket burst size.
	RegistrationBurst int `koanf:"registration_burst"`

	// RateLimitDisabled turns off per-route HTTP rate limiting.
	RateLimitDisabled bool `koanf:"rate_limit_disabled"`

	// CORSOrigins lists allowed cross-origin hosts for the JSON API.
	CORSOrigins []string `koanf:"cors_origins"`

	// TrustedProxies lists proxies whose X-Forwarded-For is honored.
	TrustedProxies []string `koanf:"trusted_proxies"`
}

// APIConfig holds JSON API pagination settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// EventsConfig holds the in-process activity event pipeline settings.
type EventsConfig struct {
	// BufferSize is the pub/sub channel buffer per subscriber.
	BufferSize int `koanf:"buffer_size"`

	// RatePerSecond caps activity writes to the database.
	RatePerSecond float64 `koanf:"rate_per_second"`

	// Burst is the activity writer token bucket burst size.
	Burst int `koanf:"burst"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return !c.IsProduction()
}
