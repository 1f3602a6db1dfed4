// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

// fakeHTTPServer blocks until Shutdown is called or fails immediately.
type fakeHTTPServer struct {
	failWith    error
	shutdownCh  chan struct{}
	shutdownErr error
	shutdowns   atomic.Int32
}

func newFakeHTTPServer() *fakeHTTPServer {
	return &fakeHTTPServer{shutdownCh: make(chan struct{})}
}

func (f *fakeHTTPServer) ListenAndServe() error {
	if f.failWith != nil {
		return f.failWith
	}
	<-f.shutdownCh
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(ctx context.Context) error {
	f.shutdowns.Add(1)
	close(f.shutdownCh)
	return f.shutdownErr
}

func TestHTTPServerServiceGracefulShutdown(t *testing.T) {
	server := newFakeHTTPServer()
	svc := NewHTTPServerService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Give the serve goroutine a moment to start, then stop it.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	if n := server.shutdowns.Load(); n != 1 {
		t.Errorf("shutdowns = %d, want 1", n)
	}
}

func TestHTTPServerServiceStartFailure(t *testing.T) {
	server := newFakeHTTPServer()
	server.failWith = errors.New("address already in use")
	svc := NewHTTPServerService(server, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, server.failWith) {
		t.Errorf("Serve() = %v, want wrapped start failure", err)
	}
}

func TestHTTPServerServiceName(t *testing.T) {
	svc := NewHTTPServerService(newFakeHTTPServer(), 0)
	if svc.String() != "http-server" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestJanitorServiceRunsTask(t *testing.T) {
	var runs atomic.Int32
	svc := NewJanitorService("test", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want deadline exceeded", err)
	}
	if runs.Load() == 0 {
		t.Error("task never ran")
	}
}

func TestJanitorServiceSurvivesTaskErrors(t *testing.T) {
	var runs atomic.Int32
	svc := NewJanitorService("flaky", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("transient")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_ = svc.Serve(ctx)
	if runs.Load() < 2 {
		t.Errorf("task runs = %d, want at least 2 despite errors", runs.Load())
	}
}
