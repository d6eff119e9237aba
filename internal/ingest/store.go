// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package ingest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tomtom215/spectrographus/internal/models"
)

// Store is the durable contract the pipeline writes through.
// *database.DB satisfies it; tests substitute a fake.
type Store interface {
	UpsertSession(ctx context.Context, s *models.CaptureSession) error
	UpdateEnvironmentByRunID(ctx context.Context, runID string, env models.EnvReading) (int64, error)
	FindByRunID(ctx context.Context, runID string) ([]models.CaptureSession, error)
	HasRun(ctx context.Context, runID string) (bool, error)
	UpsertCalibrationImage(ctx context.Context, runID, channelKey, path, wavelength string) error
	UpsertCalibrationMetadata(ctx context.Context, runID, normalizationJSON, resultJSON string, targetIntensity float64) error
}

// ProgressPublisher receives an event after every accepted image
// contribution. The websocket hub implements it; a nil publisher is
// valid and drops events.
type ProgressPublisher interface {
	Publish(event models.ProgressEvent)
}

// RequestError is a client-visible failure. The API layer maps it to
// its status with the message as the plain-text body.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

func badRequest(format string, args ...any) error {
	return &RequestError{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func serverError(format string, args ...any) error {
	return &RequestError{Status: http.StatusInternalServerError, Message: fmt.Sprintf(format, args...)}
}
