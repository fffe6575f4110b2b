// Package async provides observable progress tracking for background
// sync runs. Trackers replace ambient global status state: each run gets
// its own tracker keyed by an opaque id, with a single writer and
// lock-protected snapshot reads.
package async

import (
	"sync"
	"time"
)

// SyncState is the lifecycle state of a sync run.
type SyncState string

const (
	// StateRunning indicates the sync is in progress.
	StateRunning SyncState = "running"
	// StateCompleted indicates the sync finished successfully.
	StateCompleted SyncState = "completed"
	// StateFailed indicates the sync aborted with an error.
	StateFailed SyncState = "failed"
)

// SyncSnapshot is an immutable snapshot of a sync run's progress.
type SyncSnapshot struct {
	ID             string    `json:"id"`
	State          string    `json:"state"`
	FilesTotal     int       `json:"files_total"`
	FilesProcessed int       `json:"files_processed"`
	CurrentFile    string    `json:"current_file,omitempty"`
	ProgressPct    float64   `json:"progress_pct"`
	StartedAt      time.Time `json:"started_at"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	ErrorMessage   string    `json:"error_message,omitempty"`
}

// SyncTracker provides thread-safe progress tracking for one sync run.
// The sync loop is the single writer; any number of readers may poll
// Snapshot concurrently.
type SyncTracker struct {
	mu sync.RWMutex

	id          string
	state       SyncState
	total       int
	processed   int
	currentFile string
	startedAt   time.Time
	errMessage  string
}

// NewSyncTracker creates a tracker in the running state.
func NewSyncTracker(id string) *SyncTracker {
	return &SyncTracker{
		id:        id,
		state:     StateRunning,
		startedAt: time.Now(),
	}
}

// SetTotal records the number of files the run will visit.
func (t *SyncTracker) SetTotal(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = total
}

// Update records per-file progress. Called after every file regardless of
// outcome.
func (t *SyncTracker) Update(processed int, currentFile string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processed = processed
	t.currentFile = currentFile
}

// Complete marks the run finished.
func (t *SyncTracker) Complete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = StateCompleted
	t.currentFile = ""
}

// Fail marks the run aborted with an error message.
func (t *SyncTracker) Fail(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = StateFailed
	t.errMessage = message
}

// Snapshot returns an immutable copy of the current progress.
func (t *SyncTracker) Snapshot() SyncSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var pct float64
	if t.total > 0 {
		pct = float64(t.processed) / float64(t.total) * 100.0
	}

	return SyncSnapshot{
		ID:             t.id,
		State:          string(t.state),
		FilesTotal:     t.total,
		FilesProcessed: t.processed,
		CurrentFile:    t.currentFile,
		ProgressPct:    pct,
		StartedAt:      t.startedAt,
		ElapsedSeconds: int(time.Since(t.startedAt).Seconds()),
		ErrorMessage:   t.errMessage,
	}
}
