package server

import (
	"encoding/json"
	"net/http"

	"streamvio-transcoder/internal/jobs"
	"streamvio-transcoder/internal/logging"
	"streamvio-transcoder/internal/media"

	"github.com/gorilla/mux"
)

// TranscodeRequest is the body for POST /api/transcode
type TranscodeRequest struct {
	Input   string                 `json:"input"`
	Output  string                 `json:"output"`
	Options media.TranscodeOptions `json:"options"`
}

// TranscodeResponse is returned when a job is accepted
type TranscodeResponse struct {
	JobID jobs.ID `json:"jobId"`
}

// SubmitTranscode accepts a new transcode job and returns its ID.
// Relative output paths are placed under the configured output
// directory. The job runs asynchronously; poll /api/jobs/{id} for
// completion.
func (s *Server) SubmitTranscode(w http.ResponseWriter, r *http.Request) {
	var req TranscodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Input == "" || req.Output == "" {
		writeJSONError(w, "input and output are required", http.StatusBadRequest)
		return
	}
	output := s.resolveOutput(req.Output)

	id, err := s.controller.Submit(req.Input, output, req.Options, nil)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	logging.Info("accepted transcode job %s: %s -> %s", id, req.Input, output)
	writeJSONStatus(w, http.StatusAccepted, TranscodeResponse{JobID: id})
}

// ListJobs returns all tracked jobs, newest first.
func (s *Server) ListJobs(w http.ResponseWriter, _ *http.Request) {
	records := s.controller.List()
	if records == nil {
		records = []jobs.Record{}
	}
	writeJSON(w, records)
}

// GetJob returns a single job record.
func (s *Server) GetJob(w http.ResponseWriter, r *http.Request) {
	id := jobs.ID(mux.Vars(r)["id"])

	record, err := s.controller.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, record)
}

// ProgressResponse is returned by the progress endpoint
type ProgressResponse struct {
	JobID    jobs.ID     `json:"jobId"`
	Status   jobs.Status `json:"status"`
	Progress int         `json:"progress"`
}

// GetJobProgress returns the current progress percentage for a job.
func (s *Server) GetJobProgress(w http.ResponseWriter, r *http.Request) {
	id := jobs.ID(mux.Vars(r)["id"])

	record, err := s.controller.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, ProgressResponse{
		JobID:    record.ID,
		Status:   record.Status,
		Progress: record.Progress,
	})
}

// CancelJob requests cancellation of a running or pending job.
// Cancelling a finished job is reported as a conflict.
func (s *Server) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := jobs.ID(mux.Vars(r)["id"])

	if _, err := s.controller.Get(id); err != nil {
		writeDomainError(w, err)
		return
	}

	if !s.controller.Cancel(id) {
		writeJSONError(w, "job is not active", http.StatusConflict)
		return
	}

	logging.Info("cancelled job %s", id)
	writeJSON(w, map[string]bool{"cancelled": true})
}

// ReapJob removes a finished job from the registry.
func (s *Server) ReapJob(w http.ResponseWriter, r *http.Request) {
	id := jobs.ID(mux.Vars(r)["id"])

	if err := s.controller.Reap(id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "removed"})
}
