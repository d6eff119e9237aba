// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// darkChannelKey is the channel-map key for dark reference frames.
const darkChannelKey = "dark"

// isDarkFrame reports whether the upload is a dark reference frame,
// declared either through the channel value or image_type.
func isDarkFrame(channel, imageType string) bool {
	return strings.EqualFold(channel, darkChannelKey) || strings.EqualFold(imageType, darkChannelKey)
}

// calibrationFilename computes the deterministic frame name for a
// calibration upload: dark frames and lit channels get stable
// zero-padded names so a retried upload overwrites its predecessor
// instead of accumulating copies. Only when neither applies does the
// name fall back to a timestamp.
func calibrationFilename(channel, imageType string, now time.Time) (name, channelKey string) {
	if isDarkFrame(channel, imageType) {
		return "dark_00.png", darkChannelKey
	}
	if idx, err := strconv.Atoi(channel); err == nil && idx >= 0 {
		return fmt.Sprintf("ch_%02d.png", idx), fmt.Sprintf("%02d", idx)
	}
	stamp := now.UTC().Format("20060102_150405.000")
	return "frame_" + stamp + ".png", "frame_" + stamp
}
