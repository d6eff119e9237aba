// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

// Package config loads and validates the server configuration.
//
// Configuration is loaded via Koanf v2 with layered sources, highest
// priority last:
//
//  1. Built-in defaults
//  2. Optional YAML config file (config.yaml, or CONFIG_PATH)
//  3. Environment variables (HTTP_PORT, STORAGE_ROOT, DUCKDB_PATH, ...)
package config

import (
	"path/filepath"
	"time"
)

// Config is the root configuration for the ingestion server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Database DatabaseConfig `koanf:"database"`
	Ingest   IngestConfig   `koanf:"ingest"`
	Location LocationConfig `koanf:"location"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Port is the TCP port the ingestion server listens on.
	Port int `koanf:"port" validate:"min=1,max=65535"`

	// Host is the bind address. The instrument controller reaches the
	// device over the capture network, so the default binds all interfaces.
	Host string `koanf:"host" validate:"required"`

	// ReadTimeout bounds how long a single upload request may take to
	// arrive. Archives from the controller can be tens of megabytes over a
	// slow link.
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// ShutdownTimeout is the graceful shutdown window for in-flight uploads.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StorageConfig holds on-disk layout settings.
type StorageConfig struct {
	// Root is the base directory for all saved captures.
	// Layout under the root:
	//
	//	Sessions/<sessionID>/                                burst frames
	//	PMFI/<runID>__<configName>/section_<idx>__<label>/   sectioned runs
	//	CAL/<runID>/                                         calibration frames
	Root string `koanf:"root" validate:"required"`
}

// SessionsDir returns the directory holding burst session subdirectories.
func (s StorageConfig) SessionsDir() string {
	return filepath.Join(s.Root, "Sessions")
}

// SectionedDir returns the directory holding sectioned-run subtrees.
func (s StorageConfig) SectionedDir() string {
	return filepath.Join(s.Root, "PMFI")
}

// CalibrationDir returns the directory holding calibration-run subtrees.
func (s StorageConfig) CalibrationDir() string {
	return filepath.Join(s.Root, "CAL")
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the DuckDB database file. ":memory:" is accepted for tests.
	Path string `koanf:"path" validate:"required"`

	// MaxMemory caps DuckDB's memory use. The server shares the device with
	// the capture UI, so the default is deliberately small.
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 uses runtime.NumCPU().
	Threads int `koanf:"threads" validate:"min=0"`
}

// IngestConfig holds reassembly pipeline settings.
type IngestConfig struct {
	// IdleTimeout is how long a run or burst session may sit without a
	// contribution before the sweeper drops its in-memory tracking state.
	IdleTimeout time.Duration `koanf:"idle_timeout" validate:"required"`

	// WriteQueueSize is the capacity of the async durable-write queue.
	WriteQueueSize int `koanf:"write_queue_size" validate:"min=1"`
}

// LocationConfig holds best-effort location resolution settings.
type LocationConfig struct {
	// ProviderURL is the local platform location bridge endpoint. Empty
	// disables the bridge; resolution then falls back to the static
	// coordinates below.
	ProviderURL string `koanf:"provider_url" validate:"omitempty,url"`

	// Timeout bounds a single resolution attempt.
	Timeout time.Duration `koanf:"timeout" validate:"required"`

	// Latitude and Longitude are static fallback coordinates for fixed
	// installations. Both zero means no fallback.
	Latitude  float64 `koanf:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `koanf:"longitude" validate:"min=-180,max=180"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all sensible default values.
// These are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8077,
			Host:            "0.0.0.0",
			ReadTimeout:     2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Root: "/data/captures",
		},
		Database: DatabaseConfig{
			Path:      "/data/spectrographus.duckdb",
			MaxMemory: "256MB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Ingest: IngestConfig{
			IdleTimeout:    10 * time.Minute,
			WriteQueueSize: 256,
		},
		Location: LocationConfig{
			ProviderURL: "",
			Timeout:     2 * time.Second,
			Latitude:    0.0,
			Longitude:   0.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
