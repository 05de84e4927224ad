package jobs

import (
	"time"

	"streamvio-transcoder/internal/media"

	"github.com/google/uuid"
)

// ID is the opaque identifier naming one transcode request for its
// lifetime. IDs are generated at submission and never reused; in
// particular an ID is never derived from the output path, so a retry
// targeting the same output is a distinct job.
type ID string

// NewID returns a fresh job identifier.
func NewID() ID {
	return ID(uuid.New().String())
}

// Record is the tracked state of one transcode job. The registry owns the
// mutable record; everything handed out by Get or List is a value copy, so
// callers always see an internally consistent snapshot.
type Record struct {
	ID         ID                     `json:"id"`
	InputPath  string                 `json:"inputPath"`
	OutputPath string                 `json:"outputPath"`
	Options    media.TranscodeOptions `json:"options"`
	Status     Status                 `json:"status"`
	Progress   int                    `json:"progress"`
	Error      string                 `json:"error,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
	FinishedAt time.Time              `json:"finishedAt,omitempty"`
}
