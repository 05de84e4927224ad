package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"streamvio-transcoder/internal/jobs"
	"streamvio-transcoder/internal/logging"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONStatus writes v with an explicit status code.
func writeJSONStatus(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONStatus(w, statusCode, map[string]string{"error": message})
}

// writeDomainError maps a jobs error to the appropriate HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	writeJSONError(w, err.Error(), statusForError(err))
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, jobs.ErrInvalidOptions):
		return http.StatusBadRequest
	case errors.Is(err, jobs.ErrInputNotFound):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrDuplicateOutput):
		return http.StatusConflict
	case errors.Is(err, jobs.ErrStillActive):
		return http.StatusConflict
	case errors.Is(err, jobs.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
