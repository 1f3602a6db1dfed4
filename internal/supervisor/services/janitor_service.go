// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package services

import (
	"context"
	"time"

	"github.com/mkaschke/bucketlist/internal/logging"
)

// JanitorService runs a named maintenance task on a fixed interval:
// expired-session sweeps, lockout cleanup, activity pruning, database
// checkpoints. Task errors are logged, not fatal; the next tick tries
// again.
type JanitorService struct {
	name     string
	interval time.Duration
	task     func(ctx context.Context) error
}

// NewJanitorService creates a periodic task service.
func NewJanitorService(name string, interval time.Duration, task func(ctx context.Context) error) *JanitorService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &JanitorService{
		name:     name,
		interval: interval,
		task:     task,
	}
}

// Serve implements suture.Service.
func (j *JanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := j.task(ctx); err != nil {
				logger := logging.WithComponent("janitor")
				logger.Error().Err(err).
					Str("task", j.name).
					Msg("Maintenance task failed")
			}
		}
	}
}

// String names the service in supervisor logs.
func (j *JanitorService) String() string { return "janitor-" + j.name }
