// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package ingest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/spectrographus/internal/models"
	"github.com/tomtom215/spectrographus/internal/sniff"
)

func TestBurstAssemblerExactlyOneWinner(t *testing.T) {
	b := NewBurstAssembler()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var snapshots [][]string
	for i := 0; i < BurstSize; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, snap := b.AddImage("s1", fmt.Sprintf("/img/%02d.png", i))
			if snap != nil {
				mu.Lock()
				snapshots = append(snapshots, snap)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if len(snapshots) != 1 {
		t.Fatalf("expected exactly one finalization winner, got %d", len(snapshots))
	}
	if len(snapshots[0]) != BurstSize {
		t.Errorf("snapshot holds %d images", len(snapshots[0]))
	}
	if b.Len() != 0 {
		t.Error("state not cleared after finalization")
	}
}

func TestBurstAssemblerPostFinalizationStartsFresh(t *testing.T) {
	b := NewBurstAssembler()
	for i := 0; i < BurstSize; i++ {
		b.AddImage("s1", "/img.png")
	}
	count, snap := b.AddImage("s1", "/img17.png")
	if count != 1 || snap != nil {
		t.Errorf("17th image should open a new accumulation, got count=%d snap=%v", count, snap)
	}
}

func TestBurstAssemblerEvictIdle(t *testing.T) {
	b := NewBurstAssembler()
	base := time.Now()
	b.now = func() time.Time { return base }

	b.AddImage("stale", "/a.png")
	b.now = func() time.Time { return base.Add(5 * time.Minute) }
	b.AddImage("fresh", "/b.png")

	b.now = func() time.Time { return base.Add(11 * time.Minute) }
	if n := b.EvictIdle(10 * time.Minute); n != 1 {
		t.Errorf("expected 1 eviction, got %d", n)
	}
	if b.Count("stale") != 0 || b.Count("fresh") != 1 {
		t.Error("wrong session evicted")
	}
}

func TestEnvCachePutConsumeMove(t *testing.T) {
	c := NewEnvCache()
	reading := models.EnvReading{TempC: 20, Humidity: 30, TimestampUTC: time.Now().UTC()}

	c.Put("R1", reading)
	c.Move("R1", "R1__renamed")

	if _, ok := c.Consume("R1"); ok {
		t.Error("entry should have moved away from R1")
	}
	got, ok := c.Consume("R1__renamed")
	if !ok || got.TempC != 20 {
		t.Errorf("moved entry lost: %v %v", got, ok)
	}
	if _, ok := c.Consume("R1__renamed"); ok {
		t.Error("consume must evict")
	}
}

func TestEnvCacheEvictIdle(t *testing.T) {
	c := NewEnvCache()
	base := time.Now()
	c.now = func() time.Time { return base }
	c.Put("R1", models.EnvReading{TempC: 1})

	c.now = func() time.Time { return base.Add(11 * time.Minute) }
	if n := c.EvictIdle(10 * time.Minute); n != 1 {
		t.Errorf("expected 1 eviction, got %d", n)
	}
	if c.Len() != 0 {
		t.Error("entry survived eviction")
	}
}

func TestSweeperRateLimits(t *testing.T) {
	s := NewSweeper(10 * time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }

	tracker := NewRunTracker(nil)
	bursts := NewBurstAssembler()
	env := NewEnvCache()

	// Populate a stale entry by backdating the burst clock.
	bursts.now = func() time.Time { return base.Add(-11 * time.Minute) }
	bursts.AddImage("stale", "/a.png")
	bursts.now = func() time.Time { return base }

	s.MaybeSweep(tracker, bursts, env)
	if bursts.Len() != 0 {
		t.Fatal("first sweep should evict the stale session")
	}

	// A second sweep inside the interval is skipped.
	bursts.now = func() time.Time { return base.Add(-11 * time.Minute) }
	bursts.AddImage("stale2", "/b.png")
	bursts.now = func() time.Time { return base }
	s.MaybeSweep(tracker, bursts, env)
	if bursts.Len() != 1 {
		t.Error("sweep inside the rate-limit window should be skipped")
	}

	// Past the interval it runs again.
	s.now = func() time.Time { return base.Add(2 * sweepInterval) }
	bursts.now = func() time.Time { return base.Add(2 * sweepInterval) }
	s.MaybeSweep(tracker, bursts, env)
	if bursts.Len() != 0 {
		t.Error("sweep after the interval should evict")
	}
}

func TestCalibrationFilename(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC)
	tests := []struct {
		name      string
		channel   string
		imageType string
		wantName  string
		wantKey   string
	}{
		{"lit channel", "3", "", "ch_03.png", "03"},
		{"two digit channel", "12", "", "ch_12.png", "12"},
		{"dark via channel", "dark", "", "dark_00.png", "dark"},
		{"dark via image type", "", "dark", "dark_00.png", "dark"},
		{"dark case insensitive", "DARK", "", "dark_00.png", "dark"},
		{"unparseable channel", "left", "", "frame_20260301_123045.000.png", "frame_20260301_123045.000"},
		{"negative channel", "-2", "", "frame_20260301_123045.000.png", "frame_20260301_123045.000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, key := calibrationFilename(tt.channel, tt.imageType, now)
			if name != tt.wantName || key != tt.wantKey {
				t.Errorf("calibrationFilename(%q, %q) = %q, %q; want %q, %q",
					tt.channel, tt.imageType, name, key, tt.wantName, tt.wantKey)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		body sniff.Kind
		mode string
		want UploadKind
	}{
		{sniff.KindJSON, "", KindMetadata},
		{sniff.KindJSON, ModeSectioned, KindMetadata},
		{sniff.KindJSON, ModeCalibration, KindMetadata},
		{sniff.KindZIP, ModeSectioned, KindArchive},
		{sniff.KindRaw, ModeSectioned, KindRawSection},
		{sniff.KindZIP, ModeCalibration, KindCalibration},
		{sniff.KindRaw, ModeCalibration, KindCalibration},
		{sniff.KindRaw, "", KindBurst},
		{sniff.KindZIP, "", KindBurst},
	}
	for _, tt := range tests {
		if got := Classify(tt.body, tt.mode); got != tt.want {
			t.Errorf("Classify(%v, %q) = %v, want %v", tt.body, tt.mode, got, tt.want)
		}
	}
}
