// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/spectrographus/internal/metrics"
	"github.com/tomtom215/spectrographus/internal/models"
)

// UpsertSession inserts or replaces the row for (run_id, section_index).
// The image list is written whole: callers pass the complete current
// list, never a delta, so a re-merge of the same archive converges to
// the same row.
func (db *DB) UpsertSession(ctx context.Context, s *models.CaptureSession) error {
	paths, err := json.Marshal(s.ImagePaths)
	if err != nil {
		return fmt.Errorf("encode image paths: %w", err)
	}

	query := `INSERT INTO capture_sessions (
		id, created_at, completed_at, type, run_id, section_index,
		label, image_paths, location, env_temp_c, env_humidity,
		env_ts_utc, config_name
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (run_id, section_index) DO UPDATE SET
		completed_at = EXCLUDED.completed_at,
		label = EXCLUDED.label,
		image_paths = EXCLUDED.image_paths,
		location = EXCLUDED.location,
		env_temp_c = COALESCE(EXCLUDED.env_temp_c, capture_sessions.env_temp_c),
		env_humidity = COALESCE(EXCLUDED.env_humidity, capture_sessions.env_humidity),
		env_ts_utc = COALESCE(EXCLUDED.env_ts_utc, capture_sessions.env_ts_utc),
		config_name = EXCLUDED.config_name`

	start := time.Now()
	_, err = db.conn.ExecContext(ctx, query,
		s.ID, s.CreatedAt, s.CompletedAt, string(s.Type), s.RunID, s.SectionIndex,
		s.Label, string(paths), s.Location,
		nullFloat(s.EnvTempC), nullFloat(s.EnvHumidity), nullTime(s.EnvTimestampUTC),
		s.ConfigName)
	metrics.RecordDBQuery("INSERT", "capture_sessions", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("upsert capture session %s/%d: %w", s.RunID, s.SectionIndex, err)
	}
	return nil
}

// UpdateEnvironmentByRunID applies an environment reading to every row
// of a run. Returns the number of rows touched so the caller can tell
// "applied" apart from "run not recorded yet".
func (db *DB) UpdateEnvironmentByRunID(ctx context.Context, runID string, env models.EnvReading) (int64, error) {
	query := `UPDATE capture_sessions
		SET env_temp_c = ?, env_humidity = ?, env_ts_utc = ?
		WHERE run_id = ?`

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, query, env.TempC, env.Humidity, env.TimestampUTC, runID)
	metrics.RecordDBQuery("UPDATE", "capture_sessions", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("update environment for run %s: %w", runID, err)
	}
	return res.RowsAffected()
}

// FindByRunID returns every section row of a run, ordered by section
// index. Empty slice when the run is unknown.
func (db *DB) FindByRunID(ctx context.Context, runID string) ([]models.CaptureSession, error) {
	query := sessionSelect + ` WHERE run_id = ? ORDER BY section_index`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, runID)
	metrics.RecordDBQuery("SELECT", "capture_sessions", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	defer closeWithLog(rows, "session rows")

	return scanSessions(rows)
}

// HasRun reports whether any row exists for runID.
func (db *DB) HasRun(ctx context.Context, runID string) (bool, error) {
	start := time.Now()
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM capture_sessions WHERE run_id = ?`, runID).Scan(&n)
	metrics.RecordDBQuery("SELECT", "capture_sessions", time.Since(start), err)
	if err != nil {
		return false, fmt.Errorf("check run %s: %w", runID, err)
	}
	return n > 0, nil
}

// ListRecentSessions returns the newest sessions for the debug endpoint.
func (db *DB) ListRecentSessions(ctx context.Context, limit int) ([]models.CaptureSession, error) {
	query := sessionSelect + ` ORDER BY created_at DESC LIMIT ?`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, limit)
	metrics.RecordDBQuery("SELECT", "capture_sessions", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list recent sessions: %w", err)
	}
	defer closeWithLog(rows, "session rows")

	return scanSessions(rows)
}

// CountSessions returns the total number of capture rows.
func (db *DB) CountSessions(ctx context.Context) (int64, error) {
	start := time.Now()
	var n int64
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM capture_sessions`).Scan(&n)
	metrics.RecordDBQuery("SELECT", "capture_sessions", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

const sessionSelect = `SELECT
	id, created_at, completed_at, type, run_id, section_index,
	label, image_paths, location, env_temp_c, env_humidity,
	env_ts_utc, config_name
FROM capture_sessions`

func scanSessions(rows *sql.Rows) ([]models.CaptureSession, error) {
	var out []models.CaptureSession
	for rows.Next() {
		var (
			s        models.CaptureSession
			typ      string
			paths    string
			tempC    sql.NullFloat64
			humidity sql.NullFloat64
			envTS    sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.CompletedAt, &typ, &s.RunID,
			&s.SectionIndex, &s.Label, &paths, &s.Location,
			&tempC, &humidity, &envTS, &s.ConfigName); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		s.Type = models.CaptureType(typ)
		if err := json.Unmarshal([]byte(paths), &s.ImagePaths); err != nil {
			return nil, fmt.Errorf("decode image paths for %s: %w", s.RunID, err)
		}
		if tempC.Valid {
			s.EnvTempC = &tempC.Float64
		}
		if humidity.Valid {
			s.EnvHumidity = &humidity.Float64
		}
		if envTS.Valid {
			s.EnvTimestampUTC = &envTS.Time
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
