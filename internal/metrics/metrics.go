// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upload Metrics
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploads_total",
			Help: "Total number of upload requests by classified kind and outcome",
		},
		[]string{"kind", "status"}, // kind: json/zip/raw, status: accepted/rejected/error
	)

	UploadBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upload_bytes_total",
			Help: "Total bytes received in upload bodies",
		},
		[]string{"kind"},
	)

	SniffResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sniff_results_total",
			Help: "Total body classifications by detected kind",
		},
		[]string{"kind"},
	)

	// Burst Metrics
	BurstFinalizations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "burst_finalizations_total",
			Help: "Total number of bursts finalized (exactly once per session)",
		},
	)

	BurstImagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "burst_images_received_total",
			Help: "Total number of burst frames accepted",
		},
	)

	// Sectioned Run Metrics
	SectionMerges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "section_merges_total",
			Help: "Total number of section archive merges",
		},
	)

	SectionImagesExtracted = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "section_images_extracted",
			Help:    "Number of frames extracted per section archive",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
		},
	)

	RunCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "run_collisions_total",
			Help: "Total number of run identifier collisions resolved by renaming",
		},
	)

	// Environment Cache Metrics
	EnvApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "env_metadata_total",
			Help: "Environment metadata dispositions",
		},
		[]string{"outcome"}, // "applied", "cached", "consumed"
	)

	EnvPendingEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "env_pending_entries",
			Help: "Current number of cached environment readings awaiting a run",
		},
	)

	// Write Queue Metrics
	PendingWrites = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "write_queue_pending",
			Help: "Current number of queued asynchronous store writes",
		},
	)

	WriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "write_errors_total",
			Help: "Total number of failed store writes",
		},
		[]string{"operation"},
	)

	WriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "write_duration_seconds",
			Help:    "Duration of store writes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Sweeper Metrics
	SweeperEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweeper_evictions_total",
			Help: "Total number of stale in-memory entries evicted",
		},
		[]string{"kind"}, // "burst", "run", "env"
	)

	// Location Metrics
	LocationResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "location_resolutions_total",
			Help: "Total number of location resolution attempts by outcome",
		},
		[]string{"outcome"}, // "resolved", "timeout", "error", "static", "unavailable"
	)

	LocationResolveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "location_resolve_duration_seconds",
			Help:    "Duration of location resolution attempts",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of failed DuckDB queries",
		},
		[]string{"operation", "table"},
	)

	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of connected progress subscribers",
		},
	)

	WSEventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_events_published_total",
			Help: "Total number of progress events broadcast to subscribers",
		},
	)

	// Circuit Breaker Metrics
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// RecordUpload records the outcome of one upload request.
func RecordUpload(kind, status string, bytes int64) {
	UploadsTotal.WithLabelValues(kind, status).Inc()
	if bytes > 0 {
		UploadBytes.WithLabelValues(kind).Add(float64(bytes))
	}
}

// RecordDBQuery records a store query's duration and error state.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordHTTPRequest records one completed HTTP request.
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordLocationResolution records one location attempt and its latency.
func RecordLocationResolution(outcome string, duration time.Duration) {
	LocationResolutions.WithLabelValues(outcome).Inc()
	LocationResolveDuration.Observe(duration.Seconds())
}
