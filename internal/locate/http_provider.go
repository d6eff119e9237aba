// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package locate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/spectrographus/internal/logging"
)

// HTTPProvider queries a platform location bridge over HTTP. On the
// target device this is a small localhost service exposing the OS
// location API; the response is a single JSON object with the fix.
type HTTPProvider struct {
	url    string
	client *http.Client
}

// NewHTTPProvider builds a provider for the bridge at url.
func NewHTTPProvider(url string) *HTTPProvider {
	return &HTTPProvider{
		url: url,
		// The per-attempt deadline comes from the caller's context; this
		// client timeout is only a backstop against leaked attempts.
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// bridgeResponse accepts both field spellings the bridge has shipped.
type bridgeResponse struct {
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Lookup fetches one fix. Honors ctx cancellation and deadline.
func (p *HTTPProvider) Lookup(ctx context.Context) (Coordinates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("build bridge request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("bridge request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("close bridge response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, fmt.Errorf("bridge returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return Coordinates{}, fmt.Errorf("read bridge response: %w", err)
	}

	var br bridgeResponse
	if err := json.Unmarshal(body, &br); err != nil {
		return Coordinates{}, fmt.Errorf("decode bridge response: %w", err)
	}

	lat, lon := br.Lat, br.Lon
	if lat == nil {
		lat = br.Latitude
	}
	if lon == nil {
		lon = br.Longitude
	}
	if lat == nil || lon == nil {
		return Coordinates{}, fmt.Errorf("bridge response missing coordinates")
	}

	return Coordinates{Latitude: *lat, Longitude: *lon}, nil
}
