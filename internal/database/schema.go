// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package database

import (
	"context"
	"fmt"
)

// initSchema creates the tables and indexes if they do not exist.
//
// capture_sessions is keyed by (run_id, section_index): a burst
// occupies one row with section_index 0, a sectioned run occupies one
// row per section. Keying on the pair makes each section independently
// visible and lets every merge be a plain upsert.
//
// Image lists and calibration channel maps are stored as JSON text.
// They are opaque to every query the server runs, so JSON columns
// would only add an extension dependency.
func (db *DB) initSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS capture_sessions (
			id UUID NOT NULL,
			created_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP NOT NULL,
			type VARCHAR NOT NULL,
			run_id VARCHAR NOT NULL,
			section_index INTEGER NOT NULL DEFAULT 0,
			label VARCHAR NOT NULL DEFAULT '',
			image_paths VARCHAR NOT NULL DEFAULT '[]',
			location VARCHAR NOT NULL DEFAULT '',
			env_temp_c DOUBLE,
			env_humidity DOUBLE,
			env_ts_utc TIMESTAMP,
			config_name VARCHAR NOT NULL DEFAULT '',
			UNIQUE (run_id, section_index)
		)`,
		`CREATE TABLE IF NOT EXISTS calibration_runs (
			run_id VARCHAR NOT NULL UNIQUE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			channel_images VARCHAR NOT NULL DEFAULT '{}',
			channel_wavelengths VARCHAR NOT NULL DEFAULT '{}',
			normalization_json VARCHAR NOT NULL DEFAULT '',
			result_json VARCHAR NOT NULL DEFAULT '',
			target_intensity DOUBLE NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_run_id ON capture_sessions (run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_created ON capture_sessions (created_at)`,
	}

	for _, q := range queries {
		if _, err := db.conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
