package ingest

// gate.go serializes ingestion runs.
//
// A run holds the gate for its whole fetch, parse and reconcile sequence, so
// two write phases never overlap. Scheduled runs wait up to maxWait for the
// gate; manual triggers use TryAcquire and fail fast.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRunInProgress is returned when another run holds the gate.
var ErrRunInProgress = errors.New("ingestion run in progress")

// DefaultGateWait is how long Acquire waits before giving up.
const DefaultGateWait = 30 * time.Second

// RunGate admits one ingestion run at a time.
type RunGate struct {
	slot    chan struct{}
	maxWait time.Duration

	mu       sync.RWMutex
	active   bool
	holderID string
	since    time.Time
}

// NewRunGate creates a gate. maxWait <= 0 uses DefaultGateWait.
func NewRunGate(maxWait time.Duration) *RunGate {
	if maxWait <= 0 {
		maxWait = DefaultGateWait
	}
	return &RunGate{
		slot:    make(chan struct{}, 1),
		maxWait: maxWait,
	}
}

// Acquire waits for the gate. It returns ErrRunInProgress when maxWait
// expires and ctx.Err() when ctx ends first. The caller must Release.
func (g *RunGate) Acquire(ctx context.Context, runID string) error {
	waitCtx, cancel := context.WithTimeout(ctx, g.maxWait)
	defer cancel()

	select {
	case g.slot <- struct{}{}:
		g.hold(runID)
		return nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrRunInProgress
	}
}

// TryAcquire takes the gate without waiting.
func (g *RunGate) TryAcquire(runID string) bool {
	select {
	case g.slot <- struct{}{}:
		g.hold(runID)
		return true
	default:
		return false
	}
}

func (g *RunGate) hold(runID string) {
	g.mu.Lock()
	g.active = true
	g.holderID = runID
	g.since = time.Now()
	g.mu.Unlock()
}

// Release frees the gate. Must be called exactly once per successful acquire.
func (g *RunGate) Release() {
	g.mu.Lock()
	g.active = false
	g.holderID = ""
	g.since = time.Time{}
	g.mu.Unlock()

	<-g.slot
}

// Active reports whether a run holds the gate.
func (g *RunGate) Active() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.active
}

// WaitForDrain blocks until no run holds the gate or ctx ends.
func (g *RunGate) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if !g.Active() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// GateStatus is a snapshot of the gate for monitoring.
type GateStatus struct {
	Active  bool      `json:"active"`
	RunID   string    `json:"run_id,omitempty"`
	Since   time.Time `json:"since,omitempty"`
	MaxWait string    `json:"max_wait"`
}

// Status returns the current gate state.
func (g *RunGate) Status() GateStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return GateStatus{
		Active:  g.active,
		RunID:   g.holderID,
		Since:   g.since,
		MaxWait: g.maxWait.String(),
	}
}
