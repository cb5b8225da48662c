package ingest

import (
	"sync"
	"time"
)

// DefaultHistorySize is how many run records History keeps.
const DefaultHistorySize = 20

// RunStatus is the outcome of an ingestion run.
type RunStatus string

const (
	StatusSucceeded RunStatus = "succeeded"
	StatusSkipped   RunStatus = "skipped" // nothing parsed, catalog untouched
	StatusFailed    RunStatus = "failed"
)

// RunRecord describes one finished ingestion run.
type RunRecord struct {
	ID         string        `json:"id"`
	Trigger    string        `json:"trigger"`
	Source     string        `json:"source"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"duration_ms"`
	RowsParsed int           `json:"rows_parsed"`
	Inserted   int           `json:"inserted"`
	Updated    int           `json:"updated"`
	Status     RunStatus     `json:"status"`
	Error      string        `json:"error,omitempty"`
}

// History is a bounded, newest-first log of run records.
type History struct {
	mu      sync.RWMutex
	records []RunRecord
	size    int
}

// NewHistory keeps the last size records; size <= 0 uses DefaultHistorySize.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{size: size}
}

// Add records rec, evicting the oldest record when full.
func (h *History) Add(rec RunRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append([]RunRecord{rec}, h.records...)
	if len(h.records) > h.size {
		h.records = h.records[:h.size]
	}
}

// Recent returns up to n records, newest first. n <= 0 returns all.
func (h *History) Recent(n int) []RunRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || n > len(h.records) {
		n = len(h.records)
	}
	out := make([]RunRecord, n)
	copy(out, h.records[:n])
	return out
}
