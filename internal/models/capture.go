// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

// Package models defines the data structures shared between the ingestion
// pipeline, the durable store, and the API layer.
package models

import (
	"time"

	"github.com/google/uuid"
)

// CaptureType identifies which pipeline produced a capture session.
type CaptureType string

const (
	// CaptureBurst is a fixed-size burst of single raw images under one
	// session identifier, finalized as a unit.
	CaptureBurst CaptureType = "BURST"

	// CaptureSectioned is a multispectral run split into wavelength
	// sections, each arriving as one or more archive parts and merged
	// incrementally.
	CaptureSectioned CaptureType = "SECTIONED"

	// CaptureCalibration is a per-channel reference capture producing
	// normalization data.
	CaptureCalibration CaptureType = "CALIBRATION"
)

// LocationNotAvailable is the explicit marker stored when device location
// could not be resolved. Never empty string: readers must be able to tell
// "resolution failed" apart from "never attempted".
const LocationNotAvailable = "Location not available"

// CaptureSession is one durable capture record.
//
// Burst sessions occupy one row keyed by their session identifier.
// Sectioned runs occupy one row per (RunID, SectionIndex); every merge
// rewrites the row's complete image list so the stored list is always a
// consistent snapshot, never a delta.
type CaptureSession struct {
	ID          uuid.UUID   `json:"id"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt time.Time   `json:"completed_at"`
	Type        CaptureType `json:"type"`

	// RunID is the logical grouping key supplied by the instrument
	// controller. For bursts this holds the session identifier.
	RunID string `json:"run_id"`

	// SectionIndex is the wavelength/section block this row represents.
	// Always 0 for bursts.
	SectionIndex int `json:"section_index"`

	// Label is the human-readable section or profile name.
	Label string `json:"label"`

	// ImagePaths is the ordered list of saved frame locations. Append-only
	// until finalized; order is arrival order for bursts and per-archive
	// lexicographic order for sections.
	ImagePaths []string `json:"image_paths"`

	// Location is a formatted "lat, lon" pair or LocationNotAvailable.
	Location string `json:"location"`

	// Environment readings, filled immediately or retroactively from the
	// pending-environment cache. Nil pointers mean "not yet reported".
	EnvTempC        *float64   `json:"env_temp_c,omitempty"`
	EnvHumidity     *float64   `json:"env_humidity,omitempty"`
	EnvTimestampUTC *time.Time `json:"env_timestamp_utc,omitempty"`

	// ConfigName is the recipe/configuration file name the controller
	// reported for this capture, when applicable.
	ConfigName string `json:"config_name,omitempty"`
}

// EnvReading is one temperature/humidity report from the controller.
type EnvReading struct {
	TempC        float64   `json:"temp_c"`
	Humidity     float64   `json:"humidity"`
	TimestampUTC time.Time `json:"ts_utc"`
}

// CalibrationRun is the durable record for one calibration run. Channel
// images and labels merge incrementally as frames arrive.
type CalibrationRun struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// ChannelImages maps channel index (or the dark-frame key) to the saved
	// frame path.
	ChannelImages map[string]string `json:"channel_images"`

	// ChannelWavelengths maps channel index to its wavelength label.
	ChannelWavelengths map[string]string `json:"channel_wavelengths"`

	// NormalizationJSON and ResultJSON hold the controller's metadata blobs
	// (normalization factors, result set) verbatim.
	NormalizationJSON string `json:"normalization_json,omitempty"`
	ResultJSON        string `json:"result_json,omitempty"`

	// TargetIntensity is the requested calibration target level.
	TargetIntensity float64 `json:"target_intensity"`
}

// ProgressEvent is published after every accepted image contribution.
// LogicalKey is the burst session identifier or "runID/sectionIndex".
type ProgressEvent struct {
	LogicalKey string `json:"logical_key"`
	Count      int    `json:"count"`

	// Expected is the expected frame count when the controller provided a
	// hint, 0 otherwise.
	Expected int `json:"expected,omitempty"`

	// Complete marks the finalizing contribution of a burst.
	Complete bool `json:"complete,omitempty"`
}
