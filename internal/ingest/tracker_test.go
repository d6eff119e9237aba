// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package ingest

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestResolveFreshRunWithoutCollision(t *testing.T) {
	tracker := NewRunTracker(func(context.Context, string) bool { return false })

	canonical, renamed := tracker.Resolve(context.Background(), "R1", 0, "001")
	if canonical != "R1" || renamed {
		t.Errorf("Resolve = %q, renamed=%v; want R1, false", canonical, renamed)
	}
}

func TestResolveCollisionMintsTimestampedID(t *testing.T) {
	tracker := NewRunTracker(func(context.Context, string) bool { return true })

	canonical, renamed := tracker.Resolve(context.Background(), "R1", 0, "001")
	if !renamed {
		t.Fatal("expected rename for durable collision")
	}
	if !strings.HasPrefix(canonical, "R1__") || canonical == "R1" {
		t.Errorf("canonical = %q, want R1__<timestamp>", canonical)
	}

	// Subsequent parts claiming the old name remap.
	follow, renamed := tracker.Resolve(context.Background(), "R1", 0, "002")
	if follow != canonical || renamed {
		t.Errorf("follow-up resolved to %q (renamed=%v), want %q", follow, renamed, canonical)
	}
	follow, _ = tracker.Resolve(context.Background(), "R1", 2, "")
	if follow != canonical {
		t.Errorf("later section resolved to %q, want %q", follow, canonical)
	}
}

func TestResolveActiveTrackerSuppressesRename(t *testing.T) {
	tracker := NewRunTracker(func(context.Context, string) bool { return true })

	// Simulate an active tracker for R1 (e.g. the run that created the
	// durable record is still live).
	tracker.ensureLocked("R1")

	canonical, renamed := tracker.Resolve(context.Background(), "R1", 0, "001")
	if canonical != "R1" || renamed {
		t.Errorf("active tracker should continue: got %q, renamed=%v", canonical, renamed)
	}
}

// ensureLocked is a test helper creating live state for an ID.
func (t *RunTracker) ensureLocked(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensureState(id, t.now())
}

func TestResolveRetriedFirstPartFollowsRename(t *testing.T) {
	tracker := NewRunTracker(func(context.Context, string) bool { return true })
	base := time.Now()
	tracker.now = func() time.Time { return base }

	canonical, renamed := tracker.Resolve(context.Background(), "R1", 0, "001")
	if !renamed {
		t.Fatal("expected rename for durable collision")
	}

	// The controller retries the first part a couple of seconds later
	// (e.g. it never saw the response). The retry must land on the
	// minted canonical, not fork a second run.
	tracker.now = func() time.Time { return base.Add(2 * time.Second) }
	retry, renamedAgain := tracker.Resolve(context.Background(), "R1", 0, "001")
	if renamedAgain {
		t.Errorf("retried first part renamed again, to %q", retry)
	}
	if retry != canonical {
		t.Errorf("retry resolved to %q, want %q", retry, canonical)
	}
	if tracker.Len() != 1 {
		t.Errorf("tracker holds %d runs after retry, want 1", tracker.Len())
	}
}

func TestResolveNonFreshPartsNeverRename(t *testing.T) {
	tracker := NewRunTracker(func(context.Context, string) bool { return true })

	for _, tc := range []struct {
		section int
		part    string
	}{
		{0, "002"}, {0, "2"}, {1, "001"}, {3, ""},
	} {
		canonical, renamed := tracker.Resolve(context.Background(), "R9", tc.section, tc.part)
		if renamed {
			t.Errorf("section=%d part=%q: unexpected rename to %q", tc.section, tc.part, canonical)
		}
	}
}

func TestAppendSectionDeduplicates(t *testing.T) {
	tracker := NewRunTracker(nil)

	got := tracker.AppendSection("R1", 0, "650nm", []string{"/a.png", "/b.png"})
	if len(got) != 2 {
		t.Fatalf("first append: %v", got)
	}
	got = tracker.AppendSection("R1", 0, "", []string{"/b.png", "/c.png"})
	if len(got) != 3 {
		t.Errorf("expected dedup to yield 3 paths, got %v", got)
	}

	// Returned slice is a copy; mutating it must not corrupt state.
	got[0] = "/mutated"
	again := tracker.AppendSection("R1", 0, "", nil)
	if again[0] != "/a.png" {
		t.Error("AppendSection returned shared backing array")
	}
}

func TestEvictIdleDropsRunsAndAliases(t *testing.T) {
	tracker := NewRunTracker(func(context.Context, string) bool { return true })
	base := time.Now()
	tracker.now = func() time.Time { return base }

	canonical, _ := tracker.Resolve(context.Background(), "R1", 0, "001")

	tracker.now = func() time.Time { return base.Add(11 * time.Minute) }
	if n := tracker.EvictIdle(10 * time.Minute); n != 1 {
		t.Fatalf("expected one eviction, got %d", n)
	}
	if tracker.Len() != 0 {
		t.Error("run not evicted")
	}

	// After eviction the alias is gone: a continuation part for R1 now
	// resolves to R1 itself, not the stale canonical.
	follow, _ := tracker.Resolve(context.Background(), "R1", 1, "005")
	if follow == canonical {
		t.Error("stale alias survived eviction")
	}
}

func TestRunInfoHints(t *testing.T) {
	tracker := NewRunTracker(nil)
	tracker.Resolve(context.Background(), "R1", 0, "001")
	tracker.SetRunInfo("R1", "profile.ini", 0, 8, 64, 8)

	cfg, expected := tracker.RunInfo("R1", 0)
	if cfg != "profile.ini" || expected != 8 {
		t.Errorf("RunInfo = %q, %d", cfg, expected)
	}
	if _, expected := tracker.RunInfo("R1", 5); expected != 0 {
		t.Errorf("unhinted section should report 0, got %d", expected)
	}
}
