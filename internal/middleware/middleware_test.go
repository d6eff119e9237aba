// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/spectrographus/internal/logging"
	"github.com/tomtom215/spectrographus/internal/metrics"
)

func TestRequestIDGeneratesWhenAbsent(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if seen == "" {
		t.Fatal("expected a generated request ID in context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("response header %q does not match context ID %q", got, seen)
	}
}

func TestRequestIDHonorsUpstream(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "upstream-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "upstream-123" {
		t.Errorf("expected upstream ID to pass through, got %q", seen)
	}
}

func TestPrometheusCapturesStatus(t *testing.T) {
	handler := Prometheus(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected wrapped writer to pass through 404, got %d", rec.Code)
	}
}

func TestPrometheusLabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Prometheus)
	r.Get("/runs/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	before := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/runs/{id}", "200"))
	for _, path := range []string{"/runs/R1", "/runs/R2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s = %d", path, rec.Code)
		}
	}
	after := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/runs/{id}", "200"))
	if after-before != 2 {
		t.Errorf("pattern series grew by %v, want 2", after-before)
	}
	if raw := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/runs/R1", "200")); raw != 0 {
		t.Errorf("raw path created its own series (count %v)", raw)
	}
}

func TestPrometheusCollapsesUnmatchedRequests(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Prometheus)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {})

	before := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404"))
	for _, path := range []string{"/probe-a", "/probe-b", "/probe-c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}
	after := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404"))
	if after-before != 3 {
		t.Errorf("unmatched series grew by %v, want 3", after-before)
	}
}

func TestRecoverWritesPlainText(t *testing.T) {
	handler := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected plain-text content type, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Internal server error") {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestRecoverPassesThroughNormalRequests(t *testing.T) {
	handler := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("expected untouched response, got %d %q", rec.Code, rec.Body.String())
	}
}
