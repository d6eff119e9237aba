// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.Server.Port != 8077 {
		t.Errorf("expected default port 8077, got %d", cfg.Server.Port)
	}
	if cfg.Ingest.IdleTimeout != 10*time.Minute {
		t.Errorf("expected 10m idle timeout, got %s", cfg.Ingest.IdleTimeout)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("STORAGE_ROOT", "/tmp/captures")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("expected HTTP_PORT override, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Root != "/tmp/captures" {
		t.Errorf("expected STORAGE_ROOT override, got %q", cfg.Storage.Root)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected LOG_LEVEL override, got %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "70000")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for out-of-range port")
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "server:\n  port: 9200\nlogging:\n  format: console\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.Port != 9200 {
		t.Errorf("expected port from config file, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("expected console format from config file, got %q", cfg.Logging.Format)
	}
}

func TestStorageLayout(t *testing.T) {
	s := StorageConfig{Root: "/data/captures"}
	if got := s.SessionsDir(); got != filepath.Join("/data/captures", "Sessions") {
		t.Errorf("unexpected sessions dir %q", got)
	}
	if got := s.SectionedDir(); got != filepath.Join("/data/captures", "PMFI") {
		t.Errorf("unexpected sectioned dir %q", got)
	}
	if got := s.CalibrationDir(); got != filepath.Join("/data/captures", "CAL") {
		t.Errorf("unexpected calibration dir %q", got)
	}
}
