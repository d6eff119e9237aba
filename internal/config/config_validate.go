// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package config

import (
	"fmt"

	"github.com/tomtom215/spectrographus/internal/validation"
)

// Validate checks the configuration for invalid or inconsistent values.
// Struct-tag validation covers ranges and enums; the checks below cover
// cross-field constraints the tags cannot express.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if c.Ingest.IdleTimeout <= 0 {
		return fmt.Errorf("ingest.idle_timeout must be positive, got %s", c.Ingest.IdleTimeout)
	}
	if c.Location.Timeout <= 0 {
		return fmt.Errorf("location.timeout must be positive, got %s", c.Location.Timeout)
	}
	// A provider URL and static coordinates may coexist; the static pair is
	// the fallback when the bridge fails. Nothing to cross-check there.

	return nil
}

// HasStaticLocation reports whether fallback coordinates are configured.
func (c *Config) HasStaticLocation() bool {
	return c.Location.Latitude != 0.0 || c.Location.Longitude != 0.0
}
