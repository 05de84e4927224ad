package server

import (
	"net/http"
	"runtime"
	"time"

	"streamvio-transcoder/internal/startup"
)

const (
	statusHealthy = "healthy"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Uptime     string `json:"uptime"`
	ActiveJobs int    `json:"activeJobs"`
	TotalJobs  int    `json:"totalJobs"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (s *Server) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	records := s.controller.List()
	active := 0
	for _, record := range records {
		if record.Status.IsActive() {
			active++
		}
	}

	writeJSON(w, HealthResponse{
		Status:       statusHealthy,
		Version:      startup.Version,
		Uptime:       time.Since(s.startTime).Round(time.Second).String(),
		ActiveJobs:   active,
		TotalJobs:    len(records),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	})
}

// LivenessCheck reports process liveness
func (s *Server) LivenessCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "alive"})
}

// ReadinessCheck reports readiness to accept jobs. Not ready while the
// transcode engine cannot resolve its binary.
func (s *Server) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if !s.controller.EngineReady() {
		writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "engine unavailable"})
		return
	}
	writeJSON(w, map[string]string{"status": "ready"})
}

// GetVersion returns the application version and build information
func (s *Server) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, startup.GetBuildInfo())
}
