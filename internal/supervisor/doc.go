// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

// Package supervisor wires the server's long-lived goroutines into a
// suture tree so a panic in one restarts that service instead of
// killing the process. The device runs unattended in the field; the
// tree is what keeps an afternoon of captures from being lost to a
// single crash.
package supervisor
