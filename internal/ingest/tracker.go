// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package ingest

import (
	"context"
	"sync"
	"time"
)

// collisionSuffixFormat is the timestamp appended when a reused run
// identifier is renamed.
const collisionSuffixFormat = "20060102_150405"

// freshStartParts are the part indicators that mark the first archive
// of a run at section 0.
func isFreshStartPart(part string) bool {
	return part == "" || part == "1" || part == "001"
}

// runState is the in-memory record of one active sectioned run.
type runState struct {
	canonicalID string
	configName  string
	sections    map[int][]string
	labels      map[int]string
	expected    map[int]int
	totalFrames int
	totalSects  int
	lastSeen    time.Time
}

// RunTracker holds the ephemeral per-run state of sectioned captures.
// It is destroyed by sweeping or restart without data loss: the merger
// writes full-list snapshots, so durable rows are re-derivable.
//
// Controllers reuse run identifiers across power cycles. When an
// apparent fresh run start names an identifier that already has a
// durable record and no live tracker, the tracker mints
// "<runID>__<timestamp>" and remaps subsequent contributions under the
// old name until the next fresh start re-evaluates.
type RunTracker struct {
	mu      sync.Mutex
	runs    map[string]*runState // keyed by canonical ID
	aliases map[string]string    // original -> canonical

	// exists reports whether a run identifier already has a durable
	// record (store row or on-disk directory).
	exists func(ctx context.Context, runID string) bool
	now    func() time.Time
}

// NewRunTracker builds a tracker. exists may be nil, disabling
// collision detection (used by tests that exercise other paths).
func NewRunTracker(exists func(ctx context.Context, runID string) bool) *RunTracker {
	return &RunTracker{
		runs:    make(map[string]*runState),
		aliases: make(map[string]string),
		exists:  exists,
		now:     time.Now,
	}
}

// Resolve maps a claimed run identifier to the canonical one for this
// contribution, creating tracker state as needed, and reports whether a
// collision rename happened on this call.
func (t *RunTracker) Resolve(ctx context.Context, runID string, sectionIndex int, part string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	freshStart := sectionIndex == 0 && isFreshStartPart(part)

	if freshStart {
		if state, active := t.runs[runID]; active {
			// A live tracker continues; no re-evaluation mid-run.
			state.lastSeen = now
			return runID, false
		}

		// A retried first part after a collision rename: the live
		// tracker sits under the minted canonical, so the guard above
		// misses it. Follow the alias rather than minting a second
		// canonical for the same physical run.
		if mapped, ok := t.aliases[runID]; ok {
			if state, active := t.runs[mapped]; active {
				state.lastSeen = now
				return mapped, false
			}
		}

		// A fresh start resets any stale alias from a previous cycle.
		delete(t.aliases, runID)

		if t.exists != nil && t.exists(ctx, runID) {
			canonical := runID + "__" + now.UTC().Format(collisionSuffixFormat)
			t.aliases[runID] = canonical
			t.ensureState(canonical, now)
			return canonical, true
		}

		t.ensureState(runID, now)
		return runID, false
	}

	canonical := runID
	if mapped, ok := t.aliases[runID]; ok {
		canonical = mapped
	}
	t.ensureState(canonical, now)
	return canonical, false
}

// ensureState must be called with the lock held.
func (t *RunTracker) ensureState(canonical string, now time.Time) *runState {
	state, ok := t.runs[canonical]
	if !ok {
		state = &runState{
			canonicalID: canonical,
			sections:    make(map[int][]string),
			labels:      make(map[int]string),
			expected:    make(map[int]int),
		}
		t.runs[canonical] = state
	}
	state.lastSeen = now
	return state
}

// AppendSection adds newly extracted paths to a section's accumulated
// list and returns a copy of the complete current list. Duplicate paths
// from a re-uploaded part collapse, keeping re-merges idempotent.
func (t *RunTracker) AppendSection(canonical string, sectionIndex int, label string, newPaths []string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.ensureState(canonical, t.now())
	if label != "" {
		state.labels[sectionIndex] = label
	}

	existing := state.sections[sectionIndex]
	seen := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		seen[p] = struct{}{}
	}
	for _, p := range newPaths {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		existing = append(existing, p)
	}
	state.sections[sectionIndex] = existing

	out := make([]string, len(existing))
	copy(out, existing)
	return out
}

// SetRunInfo records the config name and frame hints for a run.
func (t *RunTracker) SetRunInfo(canonical, configName string, sectionIndex, framesPerSection, totalFrames, totalSections int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.ensureState(canonical, t.now())
	if configName != "" {
		state.configName = configName
	}
	if framesPerSection > 0 {
		state.expected[sectionIndex] = framesPerSection
	}
	if totalFrames > 0 {
		state.totalFrames = totalFrames
	}
	if totalSections > 0 {
		state.totalSects = totalSections
	}
}

// RunInfo returns the config name and expected-frame hint for one
// section of a run; zero values when unknown.
func (t *RunTracker) RunInfo(canonical string, sectionIndex int) (configName string, expected int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.runs[canonical]
	if !ok {
		return "", 0
	}
	return state.configName, state.expected[sectionIndex]
}

// EvictIdle removes runs whose last contribution is older than
// idleFor, plus any aliases pointing at them. Returns the eviction
// count. Memory reclamation only; durable records are untouched.
func (t *RunTracker) EvictIdle(idleFor time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-idleFor)
	evicted := 0
	for id, state := range t.runs {
		if state.lastSeen.Before(cutoff) {
			delete(t.runs, id)
			evicted++
		}
	}
	for alias, canonical := range t.aliases {
		if _, live := t.runs[canonical]; !live {
			delete(t.aliases, alias)
		}
	}
	return evicted
}

// RunSnapshot is one tracker entry for the debug endpoint.
type RunSnapshot struct {
	RunID         string
	ConfigName    string
	SectionCounts map[int]int
	Expected      map[int]int
	LastSeen      time.Time
}

// Snapshot copies the tracker contents for diagnostics.
func (t *RunTracker) Snapshot() []RunSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]RunSnapshot, 0, len(t.runs))
	for _, state := range t.runs {
		counts := make(map[int]int, len(state.sections))
		for idx, paths := range state.sections {
			counts[idx] = len(paths)
		}
		expected := make(map[int]int, len(state.expected))
		for idx, n := range state.expected {
			expected[idx] = n
		}
		out = append(out, RunSnapshot{
			RunID:         state.canonicalID,
			ConfigName:    state.configName,
			SectionCounts: counts,
			Expected:      expected,
			LastSeen:      state.lastSeen,
		})
	}
	return out
}

// Len returns the number of active runs.
func (t *RunTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.runs)
}
