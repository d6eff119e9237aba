// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/spectrographus/internal/middleware"
)

// debugRateLimit caps /debug requests per client IP. The dump walks
// every tracked run under a lock; the limit keeps a polling dashboard
// from pinning the pipeline mutexes.
const (
	debugRateRequests = 30
	debugRateWindow   = time.Minute
)

// WSHandler serves a websocket subscription request. *progress.Hub's
// ServeWS satisfies it; nil disables the route.
type WSHandler func(http.ResponseWriter, *http.Request)

// NewRouter assembles the full route table with the shared middleware
// stack.
func NewRouter(h *Handler, serveWS WSHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recover)
	r.Use(middleware.Prometheus)

	r.Get("/health", h.Health)
	r.Post("/upload", h.Upload)

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(debugRateRequests, debugRateWindow))
		r.Get("/debug", h.Debug)
	})

	if serveWS != nil {
		r.Get("/ws", http.HandlerFunc(serveWS))
	}
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writePlain(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writePlain(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}
