package jobs

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"streamvio-transcoder/internal/media"
)

// Registry is the thread-safe store of job records. All mutation of job
// state goes through it; every operation is atomic with respect to the
// others.
//
// Besides the primary id→record map it keeps an auxiliary index of ACTIVE
// jobs keyed by output path, which enforces the invariant that at most one
// Pending/Running job targets a given output at any time. The index entry
// is removed exactly when the job leaves the active set.
type Registry struct {
	mu             sync.Mutex
	records        map[ID]*Record
	activeByOutput map[string]ID
}

// NewRegistry creates an empty job registry.
func NewRegistry() *Registry {
	return &Registry{
		records:        make(map[ID]*Record),
		activeByOutput: make(map[string]ID),
	}
}

// Create registers a new Pending job. It fails with ErrDuplicateOutput if
// an active job already targets outputPath.
func (r *Registry) Create(inputPath, outputPath string, opts media.TranscodeOptions) (ID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if holder, ok := r.activeByOutput[outputPath]; ok {
		return "", fmt.Errorf("%w: %s (job %s)", ErrDuplicateOutput, outputPath, holder)
	}

	id := NewID()
	r.records[id] = &Record{
		ID:         id,
		InputPath:  inputPath,
		OutputPath: outputPath,
		Options:    opts,
		Status:     StatusPending,
		CreatedAt:  time.Now(),
	}
	r.activeByOutput[outputPath] = id
	return id, nil
}

// SetProgress records a progress value for a job. Values are clamped to
// [0,100] and must be non-decreasing; a stale lower value is ignored rather
// than allowed to corrupt state. Progress updates on terminal jobs are
// ignored (a late engine event after cancellation is expected, not a bug).
func (r *Registry) SetProgress(id ID, value int) error {
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rec.Status.IsTerminal() {
		return nil
	}
	if value > rec.Progress {
		rec.Progress = value
	}
	return nil
}

// SetStatus transitions a job to newStatus, enforcing the state machine.
// Reaching a terminal status stamps FinishedAt and releases the output
// path for new submissions; Completed additionally forces progress to 100.
func (r *Registry) SetStatus(id ID, newStatus Status) error {
	if !newStatus.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, newStatus)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !rec.Status.CanTransitionTo(newStatus) {
		return fmt.Errorf("%w: %s → %s (job %s)", ErrInvalidTransition, rec.Status, newStatus, id)
	}

	rec.Status = newStatus
	if newStatus.IsTerminal() {
		rec.FinishedAt = time.Now()
		if newStatus == StatusCompleted {
			rec.Progress = 100
		}
		if r.activeByOutput[rec.OutputPath] == id {
			delete(r.activeByOutput, rec.OutputPath)
		}
	}
	return nil
}

// SetError attaches a failure reason to a job record. The reason is
// surfaced through Get, never thrown asynchronously.
func (r *Registry) SetError(id ID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rec.Error = reason
	return nil
}

// Get returns a snapshot of a job record.
func (r *Registry) Get(id ID) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *rec, nil
}

// List returns snapshots of all job records, newest first.
func (r *Registry) List() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Active returns the ids of all Pending and Running jobs.
func (r *Registry) Active() []ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ID, 0, len(r.activeByOutput))
	for _, id := range r.activeByOutput {
		out = append(out, id)
	}
	return out
}

// Reap removes a terminal job record. Completed jobs are retained until
// reaped so callers may poll after completion.
func (r *Registry) Reap(id ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !rec.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrStillActive, id, rec.Status)
	}
	delete(r.records, id)
	return nil
}
