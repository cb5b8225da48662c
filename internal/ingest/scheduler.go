package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// DefaultInterval is the time between scheduled runs.
const DefaultInterval = 24 * time.Hour

// ScheduleConfig configures a Scheduler.
type ScheduleConfig struct {
	Interval   time.Duration // time between runs (default: 24h)
	Timeout    time.Duration // bound on each run; zero means unbounded
	RunOnStart bool          // run once before the first tick
}

// Scheduler triggers ingestion runs periodically and on demand.
type Scheduler struct {
	orch *Orchestrator
	cfg  ScheduleConfig
}

// NewScheduler creates a scheduler for orch.
func NewScheduler(orch *Orchestrator, cfg ScheduleConfig) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Scheduler{orch: orch, cfg: cfg}
}

// Start runs until ctx is cancelled: once immediately when RunOnStart is
// set, then every Interval. Failed runs are logged and do not stop the loop.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("ingestion scheduler started",
		"interval", s.cfg.Interval.String(),
		"run_on_start", s.cfg.RunOnStart,
	)

	if s.cfg.RunOnStart {
		s.runOnce(ctx, TriggerStartup)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ingestion scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx, TriggerScheduled)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, trigger string) {
	runCtx, cancel := withOptionalTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	// Failed runs are logged by the orchestrator with their run id.
	if _, err := s.orch.Run(runCtx, trigger); errors.Is(err, ErrRunInProgress) {
		slog.Warn("ingestion skipped, another run holds the gate", "trigger", trigger)
	}
}

// Trigger starts a run in the background and returns its id, or
// ErrRunInProgress when a run is active. The run outlives ctx.
func (s *Scheduler) Trigger(ctx context.Context) (string, error) {
	return s.orch.Start(context.WithoutCancel(ctx), TriggerManual, s.cfg.Timeout)
}

// Recent returns up to n run records, newest first.
func (s *Scheduler) Recent(n int) []RunRecord {
	return s.orch.History().Recent(n)
}

// Status reports whether a run is in progress.
func (s *Scheduler) Status() GateStatus {
	return s.orch.Gate().Status()
}

// Drain waits for the active run to finish.
func (s *Scheduler) Drain(ctx context.Context) error {
	return s.orch.Gate().WaitForDrain(ctx)
}
