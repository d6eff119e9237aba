// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/tomtom215/spectrographus/internal/logging"
)

// Recover converts handler panics into plain-text 500 responses. The
// instrument controller parses response bodies as plain text, so the
// stock chi Recoverer's behavior is replaced with a body it understands.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logging.Ctx(r.Context()).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("path", r.URL.Path).
					Msg("handler panic recovered")

				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("Internal server error\n"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
