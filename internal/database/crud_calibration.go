// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/spectrographus/internal/metrics"
	"github.com/tomtom215/spectrographus/internal/models"
)

// FindCalibrationRun loads one calibration run. Returns ErrNotFound
// when the run has no row yet.
func (db *DB) FindCalibrationRun(ctx context.Context, runID string) (*models.CalibrationRun, error) {
	query := `SELECT run_id, created_at, updated_at, channel_images,
		channel_wavelengths, normalization_json, result_json, target_intensity
	FROM calibration_runs WHERE run_id = ?`

	start := time.Now()
	row := db.conn.QueryRowContext(ctx, query, runID)

	var (
		run         models.CalibrationRun
		images      string
		wavelengths string
	)
	err := row.Scan(&run.RunID, &run.CreatedAt, &run.UpdatedAt, &images,
		&wavelengths, &run.NormalizationJSON, &run.ResultJSON, &run.TargetIntensity)
	metrics.RecordDBQuery("SELECT", "calibration_runs", time.Since(start), err)
	if err != nil {
		return nil, asNotFound(err)
	}

	if err := json.Unmarshal([]byte(images), &run.ChannelImages); err != nil {
		return nil, fmt.Errorf("decode channel images for %s: %w", runID, err)
	}
	if err := json.Unmarshal([]byte(wavelengths), &run.ChannelWavelengths); err != nil {
		return nil, fmt.Errorf("decode channel wavelengths for %s: %w", runID, err)
	}
	return &run, nil
}

// UpsertCalibrationImage records one channel frame for a run, merging
// into the existing channel maps. The single-writer queue serializes
// these read-modify-write cycles.
func (db *DB) UpsertCalibrationImage(ctx context.Context, runID, channelKey, path, wavelength string) error {
	run, err := db.FindCalibrationRun(ctx, runID)
	if errors.Is(err, ErrNotFound) {
		now := time.Now().UTC()
		run = &models.CalibrationRun{
			RunID:              runID,
			CreatedAt:          now,
			ChannelImages:      map[string]string{},
			ChannelWavelengths: map[string]string{},
		}
	} else if err != nil {
		return err
	}

	run.ChannelImages[channelKey] = path
	if wavelength != "" {
		run.ChannelWavelengths[channelKey] = wavelength
	}
	run.UpdatedAt = time.Now().UTC()

	return db.writeCalibrationRun(ctx, run)
}

// UpsertCalibrationMetadata stores the controller's calibration blobs.
// Empty arguments leave the stored value untouched.
func (db *DB) UpsertCalibrationMetadata(ctx context.Context, runID, normalizationJSON, resultJSON string, targetIntensity float64) error {
	run, err := db.FindCalibrationRun(ctx, runID)
	if errors.Is(err, ErrNotFound) {
		now := time.Now().UTC()
		run = &models.CalibrationRun{
			RunID:              runID,
			CreatedAt:          now,
			ChannelImages:      map[string]string{},
			ChannelWavelengths: map[string]string{},
		}
	} else if err != nil {
		return err
	}

	if normalizationJSON != "" {
		run.NormalizationJSON = normalizationJSON
	}
	if resultJSON != "" {
		run.ResultJSON = resultJSON
	}
	if targetIntensity != 0 {
		run.TargetIntensity = targetIntensity
	}
	run.UpdatedAt = time.Now().UTC()

	return db.writeCalibrationRun(ctx, run)
}

// CountCalibrationRuns returns the total number of calibration rows.
func (db *DB) CountCalibrationRuns(ctx context.Context) (int64, error) {
	start := time.Now()
	var n int64
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM calibration_runs`).Scan(&n)
	metrics.RecordDBQuery("SELECT", "calibration_runs", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("count calibration runs: %w", err)
	}
	return n, nil
}

func (db *DB) writeCalibrationRun(ctx context.Context, run *models.CalibrationRun) error {
	images, err := json.Marshal(run.ChannelImages)
	if err != nil {
		return fmt.Errorf("encode channel images: %w", err)
	}
	wavelengths, err := json.Marshal(run.ChannelWavelengths)
	if err != nil {
		return fmt.Errorf("encode channel wavelengths: %w", err)
	}

	query := `INSERT INTO calibration_runs (
		run_id, created_at, updated_at, channel_images,
		channel_wavelengths, normalization_json, result_json, target_intensity
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (run_id) DO UPDATE SET
		updated_at = EXCLUDED.updated_at,
		channel_images = EXCLUDED.channel_images,
		channel_wavelengths = EXCLUDED.channel_wavelengths,
		normalization_json = EXCLUDED.normalization_json,
		result_json = EXCLUDED.result_json,
		target_intensity = EXCLUDED.target_intensity`

	start := time.Now()
	_, err = db.conn.ExecContext(ctx, query,
		run.RunID, run.CreatedAt, run.UpdatedAt, string(images),
		string(wavelengths), run.NormalizationJSON, run.ResultJSON, run.TargetIntensity)
	metrics.RecordDBQuery("INSERT", "calibration_runs", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("upsert calibration run %s: %w", run.RunID, err)
	}
	return nil
}
