// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

// Package main is the entry point for the Spectrographus ingestion server.
//
// Spectrographus runs on the capture device and receives streamed
// multispectral captures from the instrument controller over HTTP. It
// reassembles 16-image bursts and sectioned runs, stores frames under
// the capture root, and records finalized sessions in an embedded
// DuckDB database.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables layered over config.yaml (Koanf v2)
//  2. Database: embedded DuckDB with the capture schema
//  3. Location resolver: platform bridge and/or static coordinates
//  4. Progress hub: websocket progress broadcasts to the capture UI
//  5. Ingestion pipeline: burst/section reassembly with an async write queue
//  6. HTTP server: the plain-text controller protocol plus /metrics
//
// The write queue and progress hub run under a suture supervisor tree
// so a crash in either restarts the service without dropping the
// listening socket.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (HTTP_PORT, STORAGE_ROOT, DUCKDB_PATH, ...)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight uploads to complete (shutdown timeout)
//   - Drains the pending durable-write queue
//   - Closes the database
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/spectrographus/internal/api"
	"github.com/tomtom215/spectrographus/internal/config"
	"github.com/tomtom215/spectrographus/internal/database"
	"github.com/tomtom215/spectrographus/internal/ingest"
	"github.com/tomtom215/spectrographus/internal/locate"
	"github.com/tomtom215/spectrographus/internal/logging"
	"github.com/tomtom215/spectrographus/internal/progress"
	"github.com/tomtom215/spectrographus/internal/supervisor"
	"github.com/tomtom215/spectrographus/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("storage_root", cfg.Storage.Root).
		Str("db_path", cfg.Database.Path).
		Int("port", cfg.Server.Port).
		Msg("Starting Spectrographus")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	locator := buildLocator(cfg)

	hub := progress.NewHub()
	queue := ingest.NewQueue(cfg.Ingest.WriteQueueSize)
	pipeline := ingest.NewPipeline(cfg.Storage, cfg.Ingest, db, queue, locator, hub)

	handler := api.NewHandler(pipeline, hub)
	router := api.NewRouter(handler, hub.ServeWS)

	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddIngestService(queue)
	tree.AddIngestService(hub)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished).
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// The queue drains its channel before stopping; anything still
	// pending here was enqueued after shutdown and is lost.
	if depth := queue.Depth(); depth > 0 {
		logging.Warn().Int("pending_writes", depth).Msg("Durable writes lost at shutdown")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Server stopped gracefully")
}

// buildLocator assembles the best-effort location resolver from the
// configured sources. Either source may be absent.
func buildLocator(cfg *config.Config) *locate.Resolver {
	var provider locate.Provider
	if cfg.Location.ProviderURL != "" {
		provider = locate.NewHTTPProvider(cfg.Location.ProviderURL)
		logging.Info().Str("provider_url", cfg.Location.ProviderURL).Msg("Location bridge enabled")
	}

	var static *locate.Coordinates
	if cfg.HasStaticLocation() {
		static = &locate.Coordinates{
			Latitude:  cfg.Location.Latitude,
			Longitude: cfg.Location.Longitude,
		}
		logging.Info().
			Float64("latitude", static.Latitude).
			Float64("longitude", static.Longitude).
			Msg("Static location fallback configured")
	}

	if provider == nil && static == nil {
		logging.Info().Msg("No location source configured; records will carry the unavailable marker")
	}

	return locate.NewResolver(provider, static, cfg.Location.Timeout)
}
