// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

// Package archive extracts section frame archives uploaded by the
// instrument controller.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tomtom215/spectrographus/internal/logging"
)

// maxMemberSize bounds a single decompressed member to guard against
// zip bombs from a misbehaving controller.
const maxMemberSize = 256 << 20 // 256 MiB

// ExtractImages extracts every image member of the ZIP at srcPath into
// destDir, flattening member paths to their base names. A member whose
// base name already exists in destDir overwrites it, which makes
// re-uploading the same archive idempotent. Non-image members are
// skipped. The returned paths are sorted lexicographically so callers
// store a deterministic frame order regardless of archive layout.
//
// An unreadable archive is a hard error: the caller must reject the
// upload rather than record a partial section.
func ExtractImages(srcPath, destDir string) ([]string, error) {
	reader, err := zip.OpenReader(srcPath)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", filepath.Base(srcPath), err)
	}
	defer closeWithLog(reader, "archive reader")

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create extraction dir: %w", err)
	}

	var extracted []string
	for _, member := range reader.File {
		if member.FileInfo().IsDir() {
			continue
		}
		base := filepath.Base(member.Name)
		if !isImageName(base) {
			logging.Debug().
				Str("member", member.Name).
				Msg("skipping non-image archive member")
			continue
		}

		destPath := filepath.Join(destDir, base)
		if err := extractMember(member, destPath); err != nil {
			return nil, fmt.Errorf("extract %s: %w", member.Name, err)
		}
		extracted = append(extracted, destPath)
	}

	sort.Strings(extracted)
	return extracted, nil
}

// extractMember writes one archive member to destPath, replacing any
// existing file.
func extractMember(member *zip.File, destPath string) error {
	rc, err := member.Open()
	if err != nil {
		return err
	}
	defer closeWithLog(rc, "archive member")

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(out, io.LimitReader(rc, maxMemberSize))
	closeErr := out.Close()
	if copyErr != nil {
		return copyErr
	}
	return closeErr
}

// isImageName reports whether a member base name is a frame image.
func isImageName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".tif", ".tiff":
		return true
	default:
		return false
	}
}

func closeWithLog(c io.Closer, what string) {
	if err := c.Close(); err != nil {
		logging.Warn().Err(err).Str("resource", what).Msg("close failed")
	}
}
