// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package sniff

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		filename    string
		head        []byte
		want        Kind
	}{
		{
			name:        "json content type",
			contentType: "application/json; charset=utf-8",
			want:        KindJSON,
		},
		{
			name:     "metadata suffix",
			filename: "run42_metadata.json",
			want:     KindJSON,
		},
		{
			name:     "json name with metadata marker",
			filename: "env-metadata-v2.json",
			want:     KindJSON,
		},
		{
			name:     "plain json name is not metadata",
			filename: "results.json",
			head:     []byte("PK\x03\x04..."),
			want:     KindRaw,
		},
		{
			name:     "zip extension beats json body sniff",
			filename: "data.zip",
			head:     []byte(`{"mode":"cal"}`),
			want:     KindZIP,
		},
		{
			name:     "metadata name beats zip extension",
			filename: "metadata_data.zip.json",
			want:     KindJSON,
		},
		{
			name:        "zip content type",
			contentType: "application/zip",
			want:        KindZIP,
		},
		{
			name:     "uppercase zip extension",
			filename: "SECTION_0.ZIP",
			want:     KindZIP,
		},
		{
			name: "json object body sniff",
			head: []byte("  \r\n {\"temp_c\": 21.5}"),
			want: KindJSON,
		},
		{
			name: "json array body sniff",
			head: []byte(`[1,2,3]`),
			want: KindJSON,
		},
		{
			name: "json sniff precedes zip sniff",
			head: []byte("{PK\x03\x04"),
			want: KindJSON,
		},
		{
			name: "zip local file magic",
			head: []byte("PK\x03\x04rest"),
			want: KindZIP,
		},
		{
			name: "zip end of central directory magic",
			head: []byte("PK\x05\x06"),
			want: KindZIP,
		},
		{
			name: "zip spanned archive magic",
			head: []byte("PK\x07\x08"),
			want: KindZIP,
		},
		{
			name: "png body is raw",
			head: []byte("\x89PNG\r\n\x1a\n"),
			want: KindRaw,
		},
		{
			name: "empty body is raw",
			head: nil,
			want: KindRaw,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.contentType, tt.filename, tt.head)
			if got != tt.want {
				t.Errorf("Detect(%q, %q, %q) = %v, want %v",
					tt.contentType, tt.filename, tt.head, got, tt.want)
			}
		})
	}
}

func TestFilenameFromDisposition(t *testing.T) {
	tests := []struct {
		disposition string
		want        string
	}{
		{`form-data; name="file"; filename="section_0.zip"`, "section_0.zip"},
		{`attachment; filename="run1_metadata.json"`, "run1_metadata.json"},
		{`form-data; name="file"`, ""},
		{"", ""},
		{"not a header", ""},
	}

	for _, tt := range tests {
		if got := FilenameFromDisposition(tt.disposition); got != tt.want {
			t.Errorf("FilenameFromDisposition(%q) = %q, want %q", tt.disposition, got, tt.want)
		}
	}
}

func TestKindString(t *testing.T) {
	if KindJSON.String() != "json" || KindZIP.String() != "zip" || KindRaw.String() != "raw" {
		t.Error("unexpected Kind string values")
	}
}
