// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package api

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"

	"github.com/tomtom215/spectrographus/internal/ingest"
	"github.com/tomtom215/spectrographus/internal/logging"
	"github.com/tomtom215/spectrographus/internal/metrics"
	"github.com/tomtom215/spectrographus/internal/sniff"
)

// maxMetadataSize bounds a metadata document read into memory.
const maxMetadataSize = 1 << 20 // 1 MiB

// Pipeline is the ingestion surface handlers dispatch into.
// *ingest.Pipeline satisfies it.
type Pipeline interface {
	HandleMetadata(ctx context.Context, body []byte, params ingest.UploadParams) (string, error)
	HandleBurstImage(ctx context.Context, body io.Reader, params ingest.UploadParams) (string, error)
	HandleArchive(ctx context.Context, body io.Reader, params ingest.UploadParams) (string, error)
	HandleRawSection(ctx context.Context, body io.Reader, params ingest.UploadParams) (string, error)
	HandleCalibrationFrame(ctx context.Context, body io.Reader, params ingest.UploadParams) (string, error)
	Snapshot() ingest.DebugState
}

// ProgressInfo reports subscriber count for /debug. Nil-safe via the
// handler's guard.
type ProgressInfo interface {
	ClientCount() int
}

// Handler holds the endpoint implementations.
type Handler struct {
	pipeline Pipeline
	progress ProgressInfo
}

// NewHandler builds the endpoint set. progress may be nil.
func NewHandler(pipeline Pipeline, progress ProgressInfo) *Handler {
	return &Handler{pipeline: pipeline, progress: progress}
}

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writePlain(w, http.StatusOK, "OK")
}

// Debug dumps the in-memory pipeline state as text. Diagnostic only;
// no durable reads.
func (h *Handler) Debug(w http.ResponseWriter, _ *http.Request) {
	state := h.pipeline.Snapshot()

	var b strings.Builder
	fmt.Fprintf(&b, "active runs: %d\n", len(state.Runs))
	runs := state.Runs
	sort.Slice(runs, func(i, j int) bool { return runs[i].RunID < runs[j].RunID })
	for _, run := range runs {
		fmt.Fprintf(&b, "  run %s config=%q last_seen=%s\n",
			run.RunID, run.ConfigName, run.LastSeen.UTC().Format("2006-01-02T15:04:05Z"))
		sections := make([]int, 0, len(run.SectionCounts))
		for idx := range run.SectionCounts {
			sections = append(sections, idx)
		}
		sort.Ints(sections)
		for _, idx := range sections {
			fmt.Fprintf(&b, "    section %d: %d images", idx, run.SectionCounts[idx])
			if expected := run.Expected[idx]; expected > 0 {
				fmt.Fprintf(&b, " (expected %d)", expected)
			}
			b.WriteString("\n")
		}
	}
	fmt.Fprintf(&b, "open bursts: %d\n", state.OpenBursts)
	fmt.Fprintf(&b, "pending environment entries: %d\n", state.PendingEnv)
	fmt.Fprintf(&b, "pending writes: %d\n", state.QueueDepth)
	fmt.Fprintf(&b, "calibration runs in progress: %d\n", len(state.CalibrationRun))
	if h.progress != nil {
		fmt.Fprintf(&b, "progress subscribers: %d\n", h.progress.ClientCount())
	}

	writePlain(w, http.StatusOK, b.String())
}

// Upload is the single ingestion endpoint. The body kind is sniffed
// once, combined with the declared mode into an UploadKind, and
// dispatched exactly once.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	params := parseUploadParams(r)

	body, filename, contentType, cleanup, err := openUploadBody(r)
	if err != nil {
		metrics.RecordUpload("unknown", "rejected", 0)
		writePlain(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()
	if params.Filename == "" {
		params.Filename = filename
	}

	buffered := bufio.NewReaderSize(body, sniff.SniffLen)
	head, _ := buffered.Peek(sniff.SniffLen)

	bodyKind := sniff.Detect(contentType, params.Filename, head)
	metrics.SniffResults.WithLabelValues(bodyKind.String()).Inc()
	kind := ingest.Classify(bodyKind, params.Mode)

	counted := &countingReader{r: buffered}
	message, err := h.dispatch(r.Context(), kind, counted, params)
	if err != nil {
		status := http.StatusInternalServerError
		var reqErr *ingest.RequestError
		if errors.As(err, &reqErr) {
			status = reqErr.Status
		}
		outcome := "error"
		if status < http.StatusInternalServerError {
			outcome = "rejected"
		}
		metrics.RecordUpload(kind.String(), outcome, counted.n)
		logging.Ctx(r.Context()).Warn().Err(err).
			Str("kind", kind.String()).
			Int("status", status).
			Msg("upload rejected")
		writePlain(w, status, err.Error())
		return
	}

	metrics.RecordUpload(kind.String(), "accepted", counted.n)
	writePlain(w, http.StatusOK, message)
}

func (h *Handler) dispatch(ctx context.Context, kind ingest.UploadKind, body io.Reader, params ingest.UploadParams) (string, error) {
	switch kind {
	case ingest.KindMetadata:
		doc, err := io.ReadAll(io.LimitReader(body, maxMetadataSize))
		if err != nil {
			return "", fmt.Errorf("read metadata body: %w", err)
		}
		return h.pipeline.HandleMetadata(ctx, doc, params)
	case ingest.KindArchive:
		return h.pipeline.HandleArchive(ctx, body, params)
	case ingest.KindRawSection:
		return h.pipeline.HandleRawSection(ctx, body, params)
	case ingest.KindCalibration:
		return h.pipeline.HandleCalibrationFrame(ctx, body, params)
	default:
		return h.pipeline.HandleBurstImage(ctx, body, params)
	}
}

// openUploadBody returns the upload's file stream plus the best
// filename and content-type hints. Multipart requests contribute their
// first file part; anything else is the raw body.
func openUploadBody(r *http.Request) (body io.Reader, filename, contentType string, cleanup func(), err error) {
	cleanup = func() {}
	contentType = r.Header.Get("Content-Type")

	mediaType, mtParams, mtErr := mime.ParseMediaType(contentType)
	if mtErr == nil && strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(r.Body, mtParams["boundary"])
		for {
			part, perr := mr.NextPart()
			if perr == io.EOF {
				return nil, "", "", cleanup, errors.New("multipart request contains no file part")
			}
			if perr != nil {
				return nil, "", "", cleanup, fmt.Errorf("malformed multipart body: %v", perr)
			}
			if part.FileName() == "" {
				_ = part.Close()
				continue
			}
			return part, part.FileName(), part.Header.Get("Content-Type"),
				func() { _ = part.Close() }, nil
		}
	}

	filename = sniff.FilenameFromDisposition(r.Header.Get("Content-Disposition"))
	return r.Body, filename, contentType, cleanup, nil
}

// countingReader tracks consumed body bytes for upload metrics.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func writePlain(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	_, _ = w.Write([]byte(body))
}
