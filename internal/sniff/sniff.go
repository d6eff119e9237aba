// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

// Package sniff classifies upload bodies from the instrument controller.
//
// The controller's firmware is inconsistent about headers: metadata may
// arrive without a content type, archives may carry a generic octet-stream
// type, and raw frames may have no filename at all. Classification therefore
// layers declared headers, filename hints, and byte-signature sniffing.
// A body is classified exactly once; the declared checks always win over
// byte sniffing, and JSON sniffing is attempted before ZIP sniffing.
package sniff

import (
	"bytes"
	"mime"
	"strings"
)

// Kind is the classified payload kind of an upload body.
type Kind int

const (
	// KindRaw is an unrecognized body, treated as a raw image frame.
	KindRaw Kind = iota

	// KindJSON is a metadata document.
	KindJSON

	// KindZIP is an archive of section frames.
	KindZIP
)

// String returns the kind name for logs and metrics labels.
func (k Kind) String() string {
	switch k {
	case KindJSON:
		return "json"
	case KindZIP:
		return "zip"
	default:
		return "raw"
	}
}

// SniffLen is how many leading body bytes Detect needs at most.
const SniffLen = 64

// zipMagics are the three ZIP signatures: local file header,
// empty/end-of-central-directory, and spanned archive.
var zipMagics = [][]byte{
	{'P', 'K', 0x03, 0x04},
	{'P', 'K', 0x05, 0x06},
	{'P', 'K', 0x07, 0x08},
}

// Detect classifies a body given its declared content type, a resolved
// filename hint (may be empty), and up to SniffLen leading body bytes.
func Detect(contentType, filename string, head []byte) Kind {
	ct := strings.ToLower(contentType)
	name := strings.ToLower(filename)

	// Declared metadata always wins.
	if strings.Contains(ct, "application/json") || isMetadataName(name) {
		return KindJSON
	}

	// Declared archive.
	if strings.HasSuffix(name, ".zip") || strings.Contains(ct, "application/zip") {
		return KindZIP
	}

	// Byte sniffing, JSON before ZIP.
	trimmed := bytes.TrimLeft(head, " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return KindJSON
	}
	for _, magic := range zipMagics {
		if bytes.HasPrefix(head, magic) {
			return KindZIP
		}
	}

	return KindRaw
}

// isMetadataName reports whether a filename marks the body as metadata:
// either the controller's canonical "<run>_metadata.json" suffix, or any
// .json name containing "metadata".
func isMetadataName(name string) bool {
	if strings.HasSuffix(name, "_metadata.json") {
		return true
	}
	return strings.HasSuffix(name, ".json") && strings.Contains(name, "metadata")
}

// FilenameFromDisposition extracts the filename parameter from a
// Content-Disposition header. Returns empty string when absent or
// unparseable.
func FilenameFromDisposition(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
