// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

/*
Package api exposes the ingestion HTTP surface.

The instrument controller speaks a deliberately plain protocol: every
response body is plain text, including 404/405 and recovered panics,
because the controller firmware parses single-line responses. The
routes are:

	GET  /health   liveness probe, fixed "OK"
	GET  /debug    textual dump of in-memory pipeline state
	POST /upload   all capture uploads, dispatched by sniffed kind + mode
	GET  /ws       websocket progress subscription
	GET  /metrics  Prometheus exposition
*/
package api
