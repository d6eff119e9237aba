// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// writeZip builds a ZIP at path with the given member name/content pairs.
func writeZip(t *testing.T, path string, members map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	// Deterministic member order for reproducible archives.
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(members[name])); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestExtractImagesFlattensAndSorts(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "section_0.zip")
	writeZip(t, src, map[string]string{
		"frames/ch_02.png":  "two",
		"frames/ch_00.png":  "zero",
		"ch_01.png":         "one",
		"frames/notes.txt":  "skip me",
		"frames/thumbs.db":  "skip me too",
		"deep/nest/dark.png": "dark",
	})

	dest := filepath.Join(dir, "out")
	got, err := ExtractImages(src, dest)
	if err != nil {
		t.Fatalf("ExtractImages failed: %v", err)
	}

	want := []string{
		filepath.Join(dest, "ch_00.png"),
		filepath.Join(dest, "ch_01.png"),
		filepath.Join(dest, "ch_02.png"),
		filepath.Join(dest, "dark.png"),
	}
	if len(got) != len(want) {
		t.Fatalf("extracted %d paths, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("path[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	data, err := os.ReadFile(filepath.Join(dest, "ch_00.png"))
	if err != nil || string(data) != "zero" {
		t.Errorf("unexpected extracted content %q, err %v", data, err)
	}
}

func TestExtractImagesOverwritesOnCollision(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out")

	first := filepath.Join(dir, "part1.zip")
	writeZip(t, first, map[string]string{"ch_00.png": "old"})
	if _, err := ExtractImages(first, dest); err != nil {
		t.Fatal(err)
	}

	second := filepath.Join(dir, "part2.zip")
	writeZip(t, second, map[string]string{"other/ch_00.png": "new"})
	got, err := ExtractImages(second, dest)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected single path, got %v", got)
	}

	data, err := os.ReadFile(filepath.Join(dest, "ch_00.png"))
	if err != nil || string(data) != "new" {
		t.Errorf("expected collision to overwrite, got %q, err %v", data, err)
	}
}

func TestExtractImagesRejectsCorruptArchive(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.zip")
	if err := os.WriteFile(src, []byte("PK\x03\x04not really a zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := ExtractImages(src, filepath.Join(dir, "out")); err == nil {
		t.Fatal("expected hard error for unreadable archive")
	}
}

func TestExtractImagesEmptyArchive(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "empty.zip")
	writeZip(t, src, map[string]string{"readme.txt": "no frames here"})

	got, err := ExtractImages(src, filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("archive without images should not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no extracted paths, got %v", got)
	}
}

func TestExtractImagesAcceptsTiff(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tiff.zip")
	writeZip(t, src, map[string]string{"frame.TIFF": "data", "frame2.tif": "data"})

	got, err := ExtractImages(src, filepath.Join(dir, "out"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("expected both tiff members extracted, got %v", got)
	}
}
