// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package ingest

import (
	"sync"
	"time"

	"github.com/tomtom215/spectrographus/internal/metrics"
	"github.com/tomtom215/spectrographus/internal/models"
)

type pendingEnv struct {
	reading  models.EnvReading
	lastSeen time.Time
}

// EnvCache holds environment readings that arrived before the run they
// describe had any durable record. At most one entry per run; later
// metadata overwrites earlier uncommitted metadata. Entries are
// consumed the first time a durable record for the run is written.
type EnvCache struct {
	mu      sync.Mutex
	pending map[string]*pendingEnv
	now     func() time.Time
}

// NewEnvCache builds an empty cache.
func NewEnvCache() *EnvCache {
	return &EnvCache{
		pending: make(map[string]*pendingEnv),
		now:     time.Now,
	}
}

// Put caches a reading for a run, replacing any earlier one.
func (c *EnvCache) Put(runID string, reading models.EnvReading) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[runID] = &pendingEnv{reading: reading, lastSeen: c.now()}
	metrics.EnvPendingEntries.Set(float64(len(c.pending)))
}

// Consume removes and returns the cached reading for a run.
func (c *EnvCache) Consume(runID string) (models.EnvReading, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.pending[runID]
	if !ok {
		return models.EnvReading{}, false
	}
	delete(c.pending, runID)
	metrics.EnvPendingEntries.Set(float64(len(c.pending)))
	metrics.EnvApplied.WithLabelValues("consumed").Inc()
	return entry.reading, true
}

// Move remaps a cached entry to a renamed run identifier. No-op when
// nothing is cached under oldID.
func (c *EnvCache) Move(oldID, newID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.pending[oldID]
	if !ok {
		return
	}
	delete(c.pending, oldID)
	c.pending[newID] = entry
}

// Drop discards any cached entry for a run.
func (c *EnvCache) Drop(runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, runID)
	metrics.EnvPendingEntries.Set(float64(len(c.pending)))
}

// EvictIdle removes entries older than idleFor.
func (c *EnvCache) EvictIdle(idleFor time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-idleFor)
	evicted := 0
	for id, entry := range c.pending {
		if entry.lastSeen.Before(cutoff) {
			delete(c.pending, id)
			evicted++
		}
	}
	metrics.EnvPendingEntries.Set(float64(len(c.pending)))
	return evicted
}

// Len returns the number of cached entries.
func (c *EnvCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
