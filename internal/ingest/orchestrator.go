// Package ingest runs catalog ingestion: fetch the document, parse it into
// rows, reconcile the rows into the catalog, and release the staged file.
//
// Runs are serialized by a RunGate. A Scheduler triggers them at startup and
// on a fixed interval; the HTTP API can start one on demand.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/logging"
	"github.com/JonMunkholm/catalog/internal/metrics"
	"github.com/JonMunkholm/catalog/internal/source"
)

// Trigger names recorded on each run.
const (
	TriggerStartup   = "startup"
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// Parser turns a fetched document into rows.
type Parser interface {
	ParseFile(path string) ([]catalog.Row, error)
}

// Reconciler applies a batch of rows atomically.
type Reconciler interface {
	Reconcile(ctx context.Context, rows []catalog.Row) (catalog.ReconcileResult, error)
}

// Options configures an Orchestrator. Nil fields get defaults.
type Options struct {
	Gate    *RunGate
	History *History
}

// Orchestrator executes ingestion runs.
type Orchestrator struct {
	fetcher    source.Fetcher
	parser     Parser
	reconciler Reconciler
	gate       *RunGate
	history    *History

	wg sync.WaitGroup
}

// NewOrchestrator wires the run pipeline.
func NewOrchestrator(fetcher source.Fetcher, parser Parser, reconciler Reconciler, opts Options) *Orchestrator {
	o := &Orchestrator{
		fetcher:    fetcher,
		parser:     parser,
		reconciler: reconciler,
		gate:       opts.Gate,
		history:    opts.History,
	}
	if o.gate == nil {
		o.gate = NewRunGate(DefaultGateWait)
	}
	if o.history == nil {
		o.history = NewHistory(DefaultHistorySize)
	}
	return o
}

// Gate returns the run gate.
func (o *Orchestrator) Gate() *RunGate {
	return o.gate
}

// History returns the run history.
func (o *Orchestrator) History() *History {
	return o.history
}

// Run waits for the gate and executes one run synchronously. The caller
// bounds its duration through ctx.
//
// The returned error is a *catalog.FetchError when the document could not be
// retrieved, the reconciliation error when the batch was rolled back, or
// ErrRunInProgress when the gate stayed busy. A document that cannot be
// parsed is not an error: the run is recorded as skipped.
func (o *Orchestrator) Run(ctx context.Context, trigger string) (RunRecord, error) {
	runID := uuid.NewString()
	if err := o.gate.Acquire(ctx, runID); err != nil {
		return RunRecord{}, err
	}
	defer o.gate.Release()

	return o.execute(ctx, runID, trigger)
}

// Start takes the gate without waiting and executes a run in the
// background. timeout > 0 bounds the run.
func (o *Orchestrator) Start(ctx context.Context, trigger string, timeout time.Duration) (string, error) {
	runID := uuid.NewString()
	if !o.gate.TryAcquire(runID) {
		return "", ErrRunInProgress
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.gate.Release()

		runCtx, cancel := withOptionalTimeout(ctx, timeout)
		defer cancel()
		o.execute(runCtx, runID, trigger)
	}()
	return runID, nil
}

// Wait blocks until every run started with Start has returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) execute(ctx context.Context, runID, trigger string) (rec RunRecord, err error) {
	ctx = logging.ContextWithRunID(ctx, runID)
	logger := logging.WithFields(ctx, "trigger", trigger)

	rec = RunRecord{
		ID:        runID,
		Trigger:   trigger,
		Source:    o.fetcher.Locator(),
		StartedAt: time.Now(),
	}
	logger.Info("ingestion run started", "source", rec.Source)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in ingestion run",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("ingestion panic: %v", r)
		}
		o.finish(logger, &rec, err)
	}()

	artifact, err := o.fetcher.Fetch(ctx)
	if err != nil {
		var fetchErr *catalog.FetchError
		if !errors.As(err, &fetchErr) {
			err = &catalog.FetchError{Locator: rec.Source, Err: err}
		}
		return rec, err
	}
	defer release(logger, artifact)

	rows, parseErr := o.parser.ParseFile(artifact.Path)
	if parseErr != nil {
		logger.Error("catalog could not be parsed", "error", parseErr)
		rows = nil
	}
	rec.RowsParsed = len(rows)

	if len(rows) == 0 {
		logger.Warn("no rows read from catalog, reconciliation skipped")
		rec.Status = StatusSkipped
		return rec, nil
	}

	reconcileStart := time.Now()
	res, err := o.reconciler.Reconcile(ctx, rows)
	if err != nil {
		return rec, err
	}
	rec.Inserted = res.Inserted
	rec.Updated = res.Updated
	rec.Status = StatusSucceeded

	logger.Info("catalog reconciled",
		"rows", res.Rows,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"duration_ms", time.Since(reconcileStart).Milliseconds(),
	)
	return rec, nil
}

func (o *Orchestrator) finish(logger *slog.Logger, rec *RunRecord, err error) {
	rec.Duration = time.Since(rec.StartedAt)
	rec.DurationMs = rec.Duration.Milliseconds()
	if err != nil {
		rec.Status = StatusFailed
		rec.Error = err.Error()
		logger.Error("ingestion run failed",
			"error", err,
			"user_message", catalog.FormatUserError(err),
			"duration_ms", rec.DurationMs,
		)
	} else {
		logger.Info("ingestion run completed",
			"status", rec.Status,
			"duration_ms", rec.DurationMs,
		)
	}

	o.history.Add(*rec)
	metrics.RecordRun(string(rec.Status), rec.Inserted, rec.Updated, rec.Duration)
}

func release(logger *slog.Logger, artifact *source.Artifact) {
	if !artifact.Staged() {
		return
	}
	if err := artifact.Release(); err != nil {
		logger.Warn("failed to remove temporary catalog file", "path", artifact.Path, "error", err)
		return
	}
	logger.Info("removed temporary catalog file", "path", artifact.Path)
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}
