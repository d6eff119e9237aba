// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/tomtom215/spectrographus/internal/ingest"
)

// parseUploadParams reads the recognized query-parameter surface of
// POST /upload into the pipeline's params struct. Handlers never touch
// the raw query after this point.
func parseUploadParams(r *http.Request) ingest.UploadParams {
	q := r.URL.Query()
	return ingest.UploadParams{
		SessionID:        firstParam(q, "sessionId", "sid"),
		Mode:             q.Get("mode"),
		RunID:            q.Get("runId"),
		ConfigName:       q.Get("ini"),
		SectionIndex:     intParam(q, "sectionIndex"),
		SectionLabel:     q.Get("section"),
		Part:             q.Get("part"),
		Channel:          firstParam(q, "channel", "channel_index"),
		Wavelength:       q.Get("wavelength"),
		ImageType:        q.Get("image_type"),
		FramesPerSection: intParamAny(q, "framesPerSection", "sectionFrames", "sectionTotalFrames"),
		TotalFrames:      intParam(q, "totalFrames"),
		TotalSections:    intParam(q, "totalSections"),
		Filename:         q.Get("filename"),
	}
}

func firstParam(q url.Values, names ...string) string {
	for _, name := range names {
		if v := q.Get(name); v != "" {
			return v
		}
	}
	return ""
}

// intParam parses a non-negative integer parameter; malformed or
// missing values yield 0 rather than an error, because the controller
// omits parameters freely.
func intParam(q url.Values, name string) int {
	v := q.Get(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func intParamAny(q url.Values, names ...string) int {
	for _, name := range names {
		if n := intParam(q, name); n > 0 {
			return n
		}
	}
	return 0
}
