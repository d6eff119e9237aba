// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package ingest

import (
	"sync"
	"time"
)

// BurstSize is the fixed number of frames in one burst. The controller
// always shoots full bursts; the size is a protocol constant, not
// configuration.
const BurstSize = 16

type burstState struct {
	images   []string
	lastSeen time.Time
}

// BurstAssembler accumulates raw frames per session identifier and
// finalizes each burst exactly once. The mutex serializes appends; the
// goroutine whose append completes the burst wins finalization and the
// state is cleared atomically, so a concurrent retry can neither
// finalize twice nor observe a half-cleared session. Frames arriving
// after finalization open a logically new accumulation.
type BurstAssembler struct {
	mu       sync.Mutex
	sessions map[string]*burstState
	now      func() time.Time
}

// NewBurstAssembler builds an empty assembler.
func NewBurstAssembler() *BurstAssembler {
	return &BurstAssembler{
		sessions: make(map[string]*burstState),
		now:      time.Now,
	}
}

// AddImage appends a saved frame path to the session's ordered list and
// returns the new count. When the append completes the burst, the
// finalized snapshot is returned and the in-memory state is cleared;
// otherwise snapshot is nil.
func (b *BurstAssembler) AddImage(sessionID, path string) (count int, snapshot []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.sessions[sessionID]
	if !ok {
		state = &burstState{images: make([]string, 0, BurstSize)}
		b.sessions[sessionID] = state
	}
	state.images = append(state.images, path)
	state.lastSeen = b.now()
	count = len(state.images)

	if count == BurstSize {
		snapshot = state.images
		delete(b.sessions, sessionID)
	}
	return count, snapshot
}

// Count returns the current accumulation size for a session.
func (b *BurstAssembler) Count(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if state, ok := b.sessions[sessionID]; ok {
		return len(state.images)
	}
	return 0
}

// EvictIdle drops unfinished accumulations idle longer than idleFor.
// The saved frames stay on disk; only tracking state is reclaimed.
func (b *BurstAssembler) EvictIdle(idleFor time.Duration) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := b.now().Add(-idleFor)
	evicted := 0
	for id, state := range b.sessions {
		if state.lastSeen.Before(cutoff) {
			delete(b.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of open accumulations.
func (b *BurstAssembler) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}
