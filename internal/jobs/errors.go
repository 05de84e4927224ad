package jobs

import "errors"

// Errors surfaced by the jobs package. Validation errors are returned
// synchronously from Submit; failures during asynchronous work are recorded
// on the job record and surfaced through Get, never thrown at a caller that
// is no longer waiting.
var (
	// ErrNotFound indicates an unknown job id.
	ErrNotFound = errors.New("job not found")

	// ErrDuplicateOutput indicates an active job already targets the
	// requested output path.
	ErrDuplicateOutput = errors.New("output path already targeted by an active job")

	// ErrInvalidTransition indicates an attempted illegal status change.
	// Seeing it usually means a caller bug; the registry state is left
	// untouched.
	ErrInvalidTransition = errors.New("invalid job status transition")

	// ErrStillActive indicates an attempt to reap a job that has not
	// reached a terminal status.
	ErrStillActive = errors.New("job still active")

	// ErrInputNotFound indicates the source path could not be opened.
	ErrInputNotFound = errors.New("input file not found")

	// ErrInvalidOptions indicates the transcode options failed validation.
	ErrInvalidOptions = errors.New("invalid transcode options")
)
