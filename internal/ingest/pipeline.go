// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/spectrographus/internal/archive"
	"github.com/tomtom215/spectrographus/internal/config"
	"github.com/tomtom215/spectrographus/internal/logging"
	"github.com/tomtom215/spectrographus/internal/metrics"
	"github.com/tomtom215/spectrographus/internal/models"
)

// LocationResolver produces the position string stored on records.
// *locate.Resolver satisfies it.
type LocationResolver interface {
	Resolve(ctx context.Context) string
}

// Pipeline owns every piece of shared ingestion state and exposes one
// handler method per UploadKind. Handlers return the plain-text body
// for the controller and a *RequestError for client faults.
type Pipeline struct {
	storage  config.StorageConfig
	store    Store
	queue    *Queue
	locator  LocationResolver
	progress ProgressPublisher

	tracker *RunTracker
	bursts  *BurstAssembler
	env     *EnvCache
	sweeper *Sweeper

	calMu     sync.Mutex
	calCounts map[string]int
}

// NewPipeline wires the pipeline. locator and progress may be nil.
func NewPipeline(storage config.StorageConfig, ingCfg config.IngestConfig, store Store, queue *Queue, locator LocationResolver, progress ProgressPublisher) *Pipeline {
	p := &Pipeline{
		storage:   storage,
		store:     store,
		queue:     queue,
		locator:   locator,
		progress:  progress,
		bursts:    NewBurstAssembler(),
		env:       NewEnvCache(),
		sweeper:   NewSweeper(ingCfg.IdleTimeout),
		calCounts: make(map[string]int),
	}
	p.tracker = NewRunTracker(func(ctx context.Context, runID string) bool {
		ok, err := store.HasRun(ctx, runID)
		if err != nil {
			logging.Warn().Err(err).Str("run_id", runID).Msg("collision check failed, assuming no record")
			return false
		}
		return ok
	})
	return p
}

// metadataDoc is the JSON surface of a metadata upload. Environment and
// calibration documents share it; which fields are set decides the path.
type metadataDoc struct {
	RunID    string `json:"run_id"`
	RunIDAlt string `json:"runId"`

	TempC        *float64 `json:"temp_c"`
	Humidity     *float64 `json:"humidity"`
	TimestampUTC string   `json:"ts_utc"`

	Normalization   json.RawMessage `json:"normalization"`
	Results         json.RawMessage `json:"results"`
	TargetIntensity float64         `json:"target_intensity"`
}

func (d *metadataDoc) runID(fallback string) string {
	if d.RunID != "" {
		return d.RunID
	}
	if d.RunIDAlt != "" {
		return d.RunIDAlt
	}
	return fallback
}

func (d *metadataDoc) isCalibration() bool {
	return len(d.Normalization) > 0 || len(d.Results) > 0 || d.TargetIntensity != 0
}

// HandleMetadata processes a JSON metadata upload. Environment readings
// are applied to the run's durable rows when they exist, cached
// otherwise; calibration blobs merge into the calibration record.
func (p *Pipeline) HandleMetadata(ctx context.Context, body []byte, params UploadParams) (string, error) {
	defer p.sweep()

	var doc metadataDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", badRequest("invalid metadata JSON: %v", err)
	}

	runID := doc.runID(params.RunID)
	if runID == "" {
		return "", badRequest("metadata missing run identifier")
	}

	if params.Mode == ModeCalibration || doc.isCalibration() {
		normalization := string(doc.Normalization)
		results := string(doc.Results)
		target := doc.TargetIntensity
		p.queue.Enqueue("calibration_metadata", func(ctx context.Context) error {
			return p.store.UpsertCalibrationMetadata(ctx, runID, normalization, results, target)
		})
		return "Calibration metadata stored", nil
	}

	if doc.TempC == nil && doc.Humidity == nil {
		return "", badRequest("metadata missing environment readings")
	}
	reading := models.EnvReading{TimestampUTC: time.Now().UTC()}
	if doc.TempC != nil {
		reading.TempC = *doc.TempC
	}
	if doc.Humidity != nil {
		reading.Humidity = *doc.Humidity
	}
	if doc.TimestampUTC != "" {
		if ts, err := time.Parse(time.RFC3339, doc.TimestampUTC); err == nil {
			reading.TimestampUTC = ts.UTC()
		}
	}

	// The update is synchronous because its row count decides the
	// response. It is a small indexed UPDATE, not a body write.
	rows, err := p.store.UpdateEnvironmentByRunID(ctx, runID, reading)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("run_id", runID).Msg("environment update failed, caching")
		rows = 0
	}
	if rows > 0 {
		p.env.Drop(runID)
		metrics.EnvApplied.WithLabelValues("applied").Inc()
		return "Environment metadata applied", nil
	}

	p.env.Put(runID, reading)
	metrics.EnvApplied.WithLabelValues("cached").Inc()
	return "Environment metadata cached", nil
}

// HandleBurstImage stores one raw burst frame and finalizes the burst
// exactly once when the sixteenth frame lands.
func (p *Pipeline) HandleBurstImage(ctx context.Context, body io.Reader, params UploadParams) (string, error) {
	defer p.sweep()

	sessionID := params.SessionID
	if sessionID == "" {
		sessionID = params.RunID
	}
	if sessionID == "" {
		return "", badRequest("burst upload missing session identifier")
	}

	dir := filepath.Join(p.storage.SessionsDir(), sanitizeSegment(sessionID))
	name := sanitizeSegment(params.Filename)
	if name == "" {
		name = "frame_" + shortID() + ".png"
	}
	path, err := saveFile(dir, name, body)
	if err != nil {
		return "", serverError("save burst frame: %v", err)
	}

	count, snapshot := p.bursts.AddImage(sessionID, path)
	metrics.BurstImagesReceived.Inc()
	p.publish(models.ProgressEvent{
		LogicalKey: sessionID,
		Count:      count,
		Expected:   BurstSize,
		Complete:   snapshot != nil,
	})

	if snapshot == nil {
		return fmt.Sprintf("Image %d of %d received", count, BurstSize), nil
	}

	metrics.BurstFinalizations.Inc()
	now := time.Now().UTC()
	p.queue.Enqueue("burst_insert", func(ctx context.Context) error {
		session := &models.CaptureSession{
			ID:          uuid.New(),
			CreatedAt:   now,
			CompletedAt: time.Now().UTC(),
			Type:        models.CaptureBurst,
			RunID:       sessionID,
			ImagePaths:  snapshot,
			Location:    p.resolveLocation(ctx),
		}
		// Consumed here, not at enqueue: metadata landing between
		// finalization and this write would otherwise cache forever,
		// since a finalized burst never contributes again.
		reading, hasEnv := p.env.Consume(sessionID)
		applyEnv(session, reading, hasEnv)
		return p.store.UpsertSession(ctx, session)
	})

	logging.Ctx(ctx).Info().Str("session_id", sessionID).Msg("burst finalized")
	return fmt.Sprintf("Burst complete: %d images received", BurstSize), nil
}

// HandleArchive merges one section archive into its run. Every merge
// upserts the section's complete image list; there is no terminal
// signal for sectioned runs.
func (p *Pipeline) HandleArchive(ctx context.Context, body io.Reader, params UploadParams) (string, error) {
	defer p.sweep()

	if params.RunID == "" {
		return "", badRequest("sectioned upload missing run identifier")
	}

	canonical := p.resolveRun(ctx, params)

	sectionDir := p.sectionDir(canonical, params)
	archiveName := sanitizeSegment(params.Filename)
	if archiveName == "" {
		part := params.Part
		if part == "" {
			part = "001"
		}
		archiveName = "part_" + sanitizeSegment(part) + ".zip"
	}
	archivePath, err := saveFile(sectionDir, archiveName, body)
	if err != nil {
		return "", serverError("save section archive: %v", err)
	}

	extracted, err := archive.ExtractImages(archivePath, sectionDir)
	if err != nil {
		return "", badRequest("unreadable archive: %v", err)
	}
	metrics.SectionMerges.Inc()
	metrics.SectionImagesExtracted.Observe(float64(len(extracted)))

	return p.mergeSection(ctx, canonical, params, extracted)
}

// HandleRawSection streams a single raw frame into a sectioned run,
// merging it like a one-image archive part.
func (p *Pipeline) HandleRawSection(ctx context.Context, body io.Reader, params UploadParams) (string, error) {
	defer p.sweep()

	if params.RunID == "" {
		return "", badRequest("sectioned upload missing run identifier")
	}

	canonical := p.resolveRun(ctx, params)

	name := sanitizeSegment(params.Filename)
	if name == "" {
		name = "frame_" + shortID() + ".png"
	}
	path, err := saveFile(p.sectionDir(canonical, params), name, body)
	if err != nil {
		return "", serverError("save section frame: %v", err)
	}

	metrics.SectionMerges.Inc()
	metrics.SectionImagesExtracted.Observe(1)

	return p.mergeSection(ctx, canonical, params, []string{path})
}

// HandleCalibrationFrame stores one calibration channel frame under the
// run's calibration directory and merges it into the durable record.
func (p *Pipeline) HandleCalibrationFrame(ctx context.Context, body io.Reader, params UploadParams) (string, error) {
	defer p.sweep()

	runID := params.RunID
	if runID == "" {
		runID = params.SessionID
	}
	if runID == "" {
		return "", badRequest("calibration upload missing run identifier")
	}

	name, channelKey := calibrationFilename(params.Channel, params.ImageType, time.Now())
	dir := filepath.Join(p.storage.CalibrationDir(), sanitizeSegment(runID))
	path, err := saveFile(dir, name, body)
	if err != nil {
		return "", serverError("save calibration frame: %v", err)
	}

	wavelength := params.Wavelength
	p.queue.Enqueue("calibration_image", func(ctx context.Context) error {
		return p.store.UpsertCalibrationImage(ctx, runID, channelKey, path, wavelength)
	})

	p.calMu.Lock()
	p.calCounts[runID]++
	count := p.calCounts[runID]
	p.calMu.Unlock()

	p.publish(models.ProgressEvent{LogicalKey: "cal/" + runID, Count: count})
	return fmt.Sprintf("Calibration frame %s stored", name), nil
}

// resolveRun maps the claimed run identifier to its canonical one and
// records run-level hints. Collision renames move any pending
// environment entry with the run.
func (p *Pipeline) resolveRun(ctx context.Context, params UploadParams) string {
	canonical, renamed := p.tracker.Resolve(ctx, params.RunID, params.SectionIndex, params.Part)
	if renamed {
		p.env.Move(params.RunID, canonical)
		metrics.RunCollisions.Inc()
		logging.Ctx(ctx).Info().
			Str("run_id", params.RunID).
			Str("canonical", canonical).
			Msg("run identifier collision, renamed")
	}
	p.tracker.SetRunInfo(canonical, params.ConfigName, params.SectionIndex,
		params.FramesPerSection, params.TotalFrames, params.TotalSections)
	return canonical
}

// mergeSection appends extracted paths to the tracker and upserts the
// section's complete list asynchronously.
func (p *Pipeline) mergeSection(ctx context.Context, canonical string, params UploadParams, newPaths []string) (string, error) {
	complete := p.tracker.AppendSection(canonical, params.SectionIndex, params.SectionLabel, newPaths)
	configName, expected := p.tracker.RunInfo(canonical, params.SectionIndex)

	reading, hasEnv := p.env.Consume(canonical)
	label := params.SectionLabel
	sectionIndex := params.SectionIndex
	now := time.Now().UTC()

	p.queue.Enqueue("section_upsert", func(ctx context.Context) error {
		session := &models.CaptureSession{
			ID:           uuid.New(),
			CreatedAt:    now,
			CompletedAt:  time.Now().UTC(),
			Type:         models.CaptureSectioned,
			RunID:        canonical,
			SectionIndex: sectionIndex,
			Label:        label,
			ImagePaths:   complete,
			Location:     p.resolveLocation(ctx),
			ConfigName:   configName,
		}
		applyEnv(session, reading, hasEnv)
		return p.store.UpsertSession(ctx, session)
	})

	p.publish(models.ProgressEvent{
		LogicalKey: fmt.Sprintf("%s/%d", canonical, sectionIndex),
		Count:      len(complete),
		Expected:   expected,
	})

	return fmt.Sprintf("Section %d of run %s: %d images merged", sectionIndex, canonical, len(complete)), nil
}

// sectionDir is <root>/PMFI/<runID>__<config>/section_<idx>__<label>/.
func (p *Pipeline) sectionDir(canonical string, params UploadParams) string {
	configName, _ := p.tracker.RunInfo(canonical, params.SectionIndex)
	if configName == "" {
		configName = "default"
	}
	label := sanitizeSegment(params.SectionLabel)
	if label == "" {
		label = fmt.Sprintf("%d", params.SectionIndex)
	}
	runDir := fmt.Sprintf("%s__%s", sanitizeSegment(canonical), sanitizeSegment(configName))
	secDir := fmt.Sprintf("section_%d__%s", params.SectionIndex, label)
	return filepath.Join(p.storage.SectionedDir(), runDir, secDir)
}

func (p *Pipeline) resolveLocation(ctx context.Context) string {
	if p.locator == nil {
		return models.LocationNotAvailable
	}
	return p.locator.Resolve(ctx)
}

func (p *Pipeline) publish(event models.ProgressEvent) {
	if p.progress != nil {
		p.progress.Publish(event)
	}
}

func (p *Pipeline) sweep() {
	p.sweeper.MaybeSweep(p.tracker, p.bursts, p.env)
}

// Drain blocks until all queued durable writes finish. Test hook.
func (p *Pipeline) Drain() {
	p.queue.Drain()
}

// DebugState is the /debug snapshot of in-memory pipeline state.
type DebugState struct {
	Runs           []RunSnapshot
	OpenBursts     int
	PendingEnv     int
	QueueDepth     int
	CalibrationRun map[string]int
}

// Snapshot copies the pipeline's in-memory state for diagnostics.
// No durable reads.
func (p *Pipeline) Snapshot() DebugState {
	p.calMu.Lock()
	cal := make(map[string]int, len(p.calCounts))
	for k, v := range p.calCounts {
		cal[k] = v
	}
	p.calMu.Unlock()

	return DebugState{
		Runs:           p.tracker.Snapshot(),
		OpenBursts:     p.bursts.Len(),
		PendingEnv:     p.env.Len(),
		QueueDepth:     p.queue.Depth(),
		CalibrationRun: cal,
	}
}

func applyEnv(session *models.CaptureSession, reading models.EnvReading, has bool) {
	if !has {
		return
	}
	session.EnvTempC = &reading.TempC
	session.EnvHumidity = &reading.Humidity
	ts := reading.TimestampUTC
	session.EnvTimestampUTC = &ts
}

// saveFile writes body to dir/name and returns the absolute path.
func saveFile(dir, name string, body io.Reader) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	_, copyErr := io.Copy(out, body)
	closeErr := out.Close()
	if copyErr != nil {
		return "", fmt.Errorf("write %s: %w", path, copyErr)
	}
	if closeErr != nil {
		return "", fmt.Errorf("close %s: %w", path, closeErr)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

// sanitizeSegment strips path separators and parent references from a
// client-supplied value used as a path segment.
func sanitizeSegment(s string) string {
	s = filepath.Base(strings.TrimSpace(s))
	if s == "." || s == string(filepath.Separator) || s == ".." {
		return ""
	}
	return s
}

func shortID() string {
	return uuid.New().String()[:8]
}
