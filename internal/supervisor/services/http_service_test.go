// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

type fakeServer struct {
	listenErr   error
	listenBlock chan struct{} // ListenAndServe blocks until closed
	shutdowns   atomic.Int32
	shutdownErr error
}

func (f *fakeServer) ListenAndServe() error {
	if f.listenBlock != nil {
		<-f.listenBlock
	}
	if f.listenErr != nil {
		return f.listenErr
	}
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	if f.listenBlock != nil {
		close(f.listenBlock)
	}
	return f.shutdownErr
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	srv := &fakeServer{listenBlock: make(chan struct{})}
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if n := srv.shutdowns.Load(); n != 1 {
		t.Errorf("Shutdown called %d times, want 1", n)
	}
}

func TestHTTPServiceSurfacesListenError(t *testing.T) {
	srv := &fakeServer{listenErr: errors.New("address in use")}
	svc := NewHTTPServerService(srv, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, srv.listenErr) {
		t.Errorf("Serve returned %v, want wrapped listen error", err)
	}
	if srv.shutdowns.Load() != 0 {
		t.Error("Shutdown should not be called after a listen failure")
	}
}

func TestHTTPServiceSurfacesShutdownError(t *testing.T) {
	srv := &fakeServer{listenBlock: make(chan struct{}), shutdownErr: errors.New("hung connections")}
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil || !errors.Is(err, srv.shutdownErr) {
			t.Errorf("Serve returned %v, want wrapped shutdown error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
}
