// Spectrographus - Multispectral Capture Ingestion Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/spectrographus

package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/spectrographus/internal/logging"
	"github.com/tomtom215/spectrographus/internal/metrics"
)

// writeOpTimeout bounds one durable write. A write that cannot finish
// in this window is failing, not slow; DuckDB on local flash commits in
// milliseconds.
const writeOpTimeout = 30 * time.Second

type writeOp struct {
	name string
	fn   func(ctx context.Context) error
}

// Queue is the single-writer queue for durable store writes. Handlers
// enqueue and return; the worker goroutine (run under the supervisor)
// executes in order. Failed writes are logged and dropped: the response
// was already sent and the files are still on disk, so manual
// re-ingestion remains possible. Availability over consistency.
//
// The depth counter is exported as a gauge and through Depth for
// /debug; Drain blocks until the queue is empty, which gives tests a
// deterministic alternative to sleeping.
type Queue struct {
	ops chan writeOp

	mu    sync.Mutex
	idle  *sync.Cond
	depth int
}

// NewQueue builds a queue with the given channel capacity. Enqueue
// blocks when the channel is full, which on this device only happens if
// the store has stalled entirely.
func NewQueue(size int) *Queue {
	q := &Queue{ops: make(chan writeOp, size)}
	q.idle = sync.NewCond(&q.mu)
	return q
}

// Enqueue schedules one durable write. fn receives its own context
// with writeOpTimeout; it must not capture the request context.
func (q *Queue) Enqueue(name string, fn func(ctx context.Context) error) {
	q.mu.Lock()
	q.depth++
	q.mu.Unlock()
	metrics.PendingWrites.Inc()

	q.ops <- writeOp{name: name, fn: fn}
}

// Depth returns the number of enqueued-but-unfinished writes.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.depth
}

// Drain blocks until every enqueued write has finished. Only
// meaningful while Serve is running.
func (q *Queue) Drain() {
	q.mu.Lock()
	for q.depth > 0 {
		q.idle.Wait()
	}
	q.mu.Unlock()
}

// Serve runs the worker loop until ctx is cancelled, then finishes any
// writes already queued before returning. Implements suture.Service.
func (q *Queue) Serve(ctx context.Context) error {
	logging.Info().Int("capacity", cap(q.ops)).Msg("write queue started")
	for {
		select {
		case op := <-q.ops:
			q.run(op)
		case <-ctx.Done():
			for {
				select {
				case op := <-q.ops:
					q.run(op)
				default:
					logging.Info().Msg("write queue stopped")
					return ctx.Err()
				}
			}
		}
	}
}

func (q *Queue) run(op writeOp) {
	defer q.finish()

	ctx, cancel := context.WithTimeout(context.Background(), writeOpTimeout)
	defer cancel()

	start := time.Now()
	err := op.fn(ctx)
	metrics.WriteDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.WriteErrors.WithLabelValues(op.name).Inc()
		logging.Error().Err(err).Str("operation", op.name).Msg("async store write failed")
	}
}

// String identifies the service in supervisor logs.
func (q *Queue) String() string { return "write-queue" }

func (q *Queue) finish() {
	metrics.PendingWrites.Dec()
	q.mu.Lock()
	q.depth--
	if q.depth == 0 {
		q.idle.Broadcast()
	}
	q.mu.Unlock()
}
