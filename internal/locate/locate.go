// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

// Package locate resolves the device's geographic position for capture
// records. Resolution is strictly best-effort: a capture is never
// delayed or failed because position is unknown, and every failure path
// collapses to the explicit "Location not available" marker.
package locate

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/spectrographus/internal/logging"
	"github.com/tomtom215/spectrographus/internal/metrics"
	"github.com/tomtom215/spectrographus/internal/models"
)

// Coordinates is one resolved position fix.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Format renders the fix in the fixed-precision "lat, lon" form stored
// on capture records.
func (c Coordinates) Format() string {
	return fmt.Sprintf("%.6f, %.6f", c.Latitude, c.Longitude)
}

// Provider obtains a position fix from some platform source. Lookup
// must honor ctx cancellation; it may block until the deadline.
type Provider interface {
	Lookup(ctx context.Context) (Coordinates, error)
}

// Resolver wraps a Provider with a per-attempt timeout and a circuit
// breaker. When the provider fails or the breaker is open, the resolver
// falls back to static coordinates if configured.
//
// The breaker uses real time for its recovery window. That is
// intentional: the timing governs when to retry a flaky platform
// bridge, not data integrity.
type Resolver struct {
	provider Provider
	static   *Coordinates
	timeout  time.Duration
	cb       *gobreaker.CircuitBreaker[Coordinates]
}

// breakerName is the metrics label for the location breaker.
const breakerName = "location-provider"

// NewResolver builds a Resolver. provider may be nil when only static
// coordinates are available; static may be nil when only the provider
// is. Both nil is a valid degenerate resolver that always reports
// unavailable.
func NewResolver(provider Provider, static *Coordinates, timeout time.Duration) *Resolver {
	metrics.BreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[Coordinates](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("location breaker state change")
			metrics.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Resolver{
		provider: provider,
		static:   static,
		timeout:  timeout,
		cb:       cb,
	}
}

// Resolve returns the formatted position, or LocationNotAvailable when
// no source produced a fix before the deadline. It never returns an
// error and never panics: position is advisory on every record.
func (r *Resolver) Resolve(ctx context.Context) string {
	start := time.Now()

	if r.provider != nil {
		coords, err := r.cb.Execute(func() (Coordinates, error) {
			attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			return r.provider.Lookup(attemptCtx)
		})
		if err == nil {
			metrics.RecordLocationResolution("resolved", time.Since(start))
			return coords.Format()
		}

		outcome := "error"
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			outcome = "timeout"
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			outcome = "error"
		}
		logging.Ctx(ctx).Debug().Err(err).Msg("location provider lookup failed")

		if r.static == nil {
			metrics.RecordLocationResolution(outcome, time.Since(start))
			return models.LocationNotAvailable
		}
	}

	if r.static != nil {
		metrics.RecordLocationResolution("static", time.Since(start))
		return r.static.Format()
	}

	metrics.RecordLocationResolution("unavailable", time.Since(start))
	return models.LocationNotAvailable
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
