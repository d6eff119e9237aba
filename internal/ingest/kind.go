// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package ingest

import "github.com/tomtom215/spectrographus/internal/sniff"

// UploadKind is the closed set of pipelines an upload can enter. It is
// computed exactly once per request from the sniffed body kind and the
// declared mode, then carried through dispatch.
type UploadKind int

const (
	// KindBurst is a raw frame of a fixed-size burst (the default mode).
	KindBurst UploadKind = iota

	// KindMetadata is a JSON metadata document.
	KindMetadata

	// KindArchive is a section archive of a sectioned run.
	KindArchive

	// KindRawSection is a raw frame streamed into a sectioned run.
	KindRawSection

	// KindCalibration is a calibration channel frame.
	KindCalibration
)

// String returns the kind name for logs and metrics labels.
func (k UploadKind) String() string {
	switch k {
	case KindMetadata:
		return "metadata"
	case KindArchive:
		return "archive"
	case KindRawSection:
		return "raw_section"
	case KindCalibration:
		return "calibration"
	default:
		return "burst"
	}
}

// Mode values the controller declares on POST /upload.
const (
	ModeSectioned   = "sectioned"
	ModeCalibration = "calibration"
)

// Classify maps a sniffed body kind and a declared mode to the pipeline
// that handles it. JSON is always metadata regardless of mode; within
// sectioned mode, archives and raw frames take different paths; an
// unset mode is a burst frame.
func Classify(body sniff.Kind, mode string) UploadKind {
	if body == sniff.KindJSON {
		return KindMetadata
	}
	switch mode {
	case ModeSectioned:
		if body == sniff.KindZIP {
			return KindArchive
		}
		return KindRawSection
	case ModeCalibration:
		return KindCalibration
	default:
		return KindBurst
	}
}

// UploadParams is the parsed query-parameter surface of POST /upload.
// The API layer fills it once per request; handlers never touch the
// raw query again.
type UploadParams struct {
	// SessionID identifies a burst accumulation (sessionId / sid).
	SessionID string

	// Mode is the declared capture mode; empty means burst.
	Mode string

	// RunID groups sectioned and calibration contributions.
	RunID string

	// ConfigName is the controller's recipe file name (ini).
	ConfigName string

	// SectionIndex is the wavelength/section block (sectionIndex).
	SectionIndex int

	// SectionLabel is the human-readable section name (section).
	SectionLabel string

	// Part is the archive part indicator within a section; blank,
	// "1" and "001" mark an apparent fresh run start at section 0.
	Part string

	// Channel is the calibration channel index, or the dark marker.
	Channel string

	// Wavelength labels a calibration channel; empty for dark frames.
	Wavelength string

	// ImageType distinguishes dark frames (image_type=dark).
	ImageType string

	// FramesPerSection is the controller's expected-frame hint for the
	// addressed section; 0 when absent.
	FramesPerSection int

	// TotalFrames and TotalSections are run-level hints; 0 when absent.
	TotalFrames   int
	TotalSections int

	// Filename is the client-supplied name for the uploaded file.
	Filename string
}
