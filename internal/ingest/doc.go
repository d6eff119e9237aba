// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

/*
Package ingest implements the capture reassembly pipeline.

The instrument controller streams uploads with no ordering or delivery
guarantees: burst frames arrive concurrently, sectioned runs arrive as
many small archive parts with no terminal marker, metadata may precede
the captures it describes, and any upload may be retried. This package
turns that stream into coherent durable capture sessions.

The Pipeline object owns all shared state (run tracker, burst
assembler, pending-environment cache, write queue) and is handed to the
HTTP handlers; nothing in this package is a package-level variable.

Durable writes are dispatched to a single-writer queue and not awaited
by handlers: a response reporting acceptance precedes the durable row.
The queue exposes its depth for observability, and Drain gives tests a
deterministic synchronization point.
*/
package ingest
