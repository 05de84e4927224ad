package server

import (
	"net/http"
	"path/filepath"
	"time"

	"streamvio-transcoder/internal/jobs"
	"streamvio-transcoder/internal/middleware"
	"streamvio-transcoder/internal/startup"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wires the job controller to the HTTP API.
type Server struct {
	controller *jobs.Controller
	config     *startup.Config
	startTime  time.Time
}

// New creates a Server around an initialized controller.
func New(controller *jobs.Controller, config *startup.Config) *Server {
	return &Server{
		controller: controller,
		config:     config,
		startTime:  time.Now(),
	}
}

// resolveOutput anchors relative output paths in the configured output
// directory. Absolute paths are taken as given.
func (s *Server) resolveOutput(path string) string {
	if filepath.IsAbs(path) || s.config.OutputDir == "" {
		return path
	}
	return filepath.Join(s.config.OutputDir, path)
}

// Router builds the API router with all routes registered.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	// Health and version endpoints
	r.HandleFunc("/health", s.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", s.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", s.LivenessCheck).Methods("GET")
	r.HandleFunc("/readyz", s.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", s.GetVersion).Methods("GET")

	// Job API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/transcode", s.SubmitTranscode).Methods("POST")
	api.HandleFunc("/jobs", s.ListJobs).Methods("GET")
	api.HandleFunc("/jobs/{id}", s.GetJob).Methods("GET")
	api.HandleFunc("/jobs/{id}/progress", s.GetJobProgress).Methods("GET")
	api.HandleFunc("/jobs/{id}/cancel", s.CancelJob).Methods("POST")
	api.HandleFunc("/jobs/{id}", s.ReapJob).Methods("DELETE")

	// Media utilities
	api.HandleFunc("/media/info", s.GetMediaInfo).Methods("GET")
	api.HandleFunc("/thumbnail", s.ExtractThumbnail).Methods("POST")

	return r
}

// Handler wraps the router with logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = s.config.LogHealthChecks

	var handler http.Handler = s.Router()
	handler = middleware.Logger(loggingConfig)(handler)
	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	return handler
}

// MetricsHandler returns the Prometheus metrics handler
func (s *Server) MetricsHandler() http.Handler {
	return promhttp.Handler()
}
