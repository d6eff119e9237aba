// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

/*
Package metrics provides Prometheus metrics collection and export.

All metrics are registered with the default registry via promauto and
exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8077/metrics

# Available Metrics

Upload Metrics:
  - uploads_total: Upload requests (counter)
    Labels: kind (json, zip, raw), status (accepted, rejected, error)
  - upload_bytes_total: Bytes received in upload bodies (counter)
    Labels: kind
  - sniff_results_total: Body classifications (counter)
    Labels: kind

Burst Metrics:
  - burst_finalizations_total: Bursts finalized (counter)
  - burst_images_received_total: Burst frames accepted (counter)

Sectioned Run Metrics:
  - section_merges_total: Section archive merges (counter)
  - section_images_extracted: Frames per archive (histogram)
  - run_collisions_total: Run identifier collisions renamed (counter)

Environment Cache Metrics:
  - env_metadata_total: Metadata dispositions (counter)
    Labels: outcome (applied, cached, consumed)
  - env_pending_entries: Cached readings awaiting a run (gauge)

Write Queue Metrics:
  - write_queue_pending: Queued asynchronous store writes (gauge)
  - write_errors_total: Failed store writes (counter)
    Labels: operation
  - write_duration_seconds: Store write latency (histogram)

Location Metrics:
  - location_resolutions_total: Resolution attempts (counter)
    Labels: outcome (resolved, timeout, error, static, unavailable)
  - location_resolve_duration_seconds: Resolution latency (histogram)

HTTP Metrics:
  - http_requests_total: HTTP requests (counter)
    Labels: method, endpoint, status_code
  - http_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - http_active_requests: In-flight requests (gauge)

Database Metrics:
  - duckdb_query_duration_seconds: Query latency (histogram)
    Labels: operation, table
  - duckdb_query_errors_total: Failed queries (counter)
    Labels: operation, table

WebSocket Metrics:
  - websocket_connections: Connected progress subscribers (gauge)
  - websocket_events_published_total: Broadcast progress events (counter)
*/
package metrics
