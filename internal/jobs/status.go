package jobs

// Status represents the current state of a transcode job.
//
// Status provides type safety for job state management and enables
// exhaustive switch statements over the job lifecycle.
type Status string

// Job status constants define all possible states of a transcode job.
const (
	// StatusPending indicates the job is accepted but not yet running.
	StatusPending Status = "pending"

	// StatusRunning indicates the codec engine is executing the job.
	StatusRunning Status = "running"

	// StatusCompleted indicates the job finished successfully.
	StatusCompleted Status = "completed"

	// StatusFailed indicates the codec engine reported an error.
	StatusFailed Status = "failed"

	// StatusCancelled indicates the job was cancelled by a caller.
	StatusCancelled Status = "cancelled"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks whether the status is one of the defined constants.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal checks whether the status represents a final state.
// A job in a terminal state never transitions again.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsActive checks whether the job still occupies its output path.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusRunning
}

// CanTransitionTo checks whether this status may transition to target.
//
// Valid transitions:
//   - Pending → Running, Cancelled
//   - Running → Completed, Failed, Cancelled
//   - terminal states cannot transition
func (s Status) CanTransitionTo(target Status) bool {
	if s.IsTerminal() {
		return false
	}

	switch s {
	case StatusPending:
		return target == StatusRunning || target == StatusCancelled
	case StatusRunning:
		return target == StatusCompleted || target == StatusFailed || target == StatusCancelled
	default:
		return false
	}
}
