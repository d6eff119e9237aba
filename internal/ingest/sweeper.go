// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package ingest

import (
	"sync"
	"time"

	"github.com/tomtom215/spectrographus/internal/logging"
	"github.com/tomtom215/spectrographus/internal/metrics"
)

// sweepInterval rate-limits opportunistic sweeps so a burst of uploads
// does not rescan the maps on every request.
const sweepInterval = time.Minute

// Sweeper reclaims in-memory tracking state idle longer than the
// configured timeout. It runs opportunistically after uploads, not on
// its own timer, and never touches durable records or files.
type Sweeper struct {
	idleTimeout time.Duration

	mu        sync.Mutex
	lastSweep time.Time
	now       func() time.Time
}

// NewSweeper builds a sweeper with the configured idle timeout.
func NewSweeper(idleTimeout time.Duration) *Sweeper {
	return &Sweeper{idleTimeout: idleTimeout, now: time.Now}
}

// MaybeSweep evicts stale entries from the three trackers if enough
// time has passed since the previous sweep.
func (s *Sweeper) MaybeSweep(tracker *RunTracker, bursts *BurstAssembler, env *EnvCache) {
	s.mu.Lock()
	if s.now().Sub(s.lastSweep) < sweepInterval {
		s.mu.Unlock()
		return
	}
	s.lastSweep = s.now()
	s.mu.Unlock()

	runs := tracker.EvictIdle(s.idleTimeout)
	sessions := bursts.EvictIdle(s.idleTimeout)
	readings := env.EvictIdle(s.idleTimeout)

	if runs > 0 {
		metrics.SweeperEvictions.WithLabelValues("run").Add(float64(runs))
	}
	if sessions > 0 {
		metrics.SweeperEvictions.WithLabelValues("burst").Add(float64(sessions))
	}
	if readings > 0 {
		metrics.SweeperEvictions.WithLabelValues("env").Add(float64(readings))
	}
	if runs+sessions+readings > 0 {
		logging.Info().
			Int("runs", runs).
			Int("bursts", sessions).
			Int("env_entries", readings).
			Msg("swept stale tracking state")
	}
}
