package server

import (
	"encoding/json"
	"net/http"

	"streamvio-transcoder/internal/logging"
)

// GetMediaInfo probes the file named by the path query parameter.
func (s *Server) GetMediaInfo(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSONError(w, "path query parameter is required", http.StatusBadRequest)
		return
	}

	descriptor, err := s.controller.Probe(r.Context(), path)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, descriptor)
}

// ThumbnailRequest is the body for POST /api/thumbnail
type ThumbnailRequest struct {
	Input    string `json:"input"`
	Output   string `json:"output"`
	OffsetMs int    `json:"offsetMs"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// ExtractThumbnail grabs a frame from the input and writes a resized
// image to the output path. Width and height fall back to defaults
// when zero.
func (s *Server) ExtractThumbnail(w http.ResponseWriter, r *http.Request) {
	var req ThumbnailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Input == "" || req.Output == "" {
		writeJSONError(w, "input and output are required", http.StatusBadRequest)
		return
	}
	output := s.resolveOutput(req.Output)

	if err := s.controller.Thumbnail(r.Context(), req.Input, output, req.OffsetMs, req.Width, req.Height); err != nil {
		writeDomainError(w, err)
		return
	}

	logging.Debug("thumbnail written: %s", output)
	writeJSON(w, map[string]string{"status": "ok", "output": output})
}
