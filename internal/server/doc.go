// Package server exposes the job controller over HTTP.
//
// The API is JSON over REST:
//   - POST /api/transcode: submit a transcode job (202 with the job ID)
//   - GET /api/jobs: list all tracked jobs
//   - GET /api/jobs/{id}: fetch one job record
//   - GET /api/jobs/{id}/progress: fetch the current progress percentage
//   - POST /api/jobs/{id}/cancel: request cancellation
//   - DELETE /api/jobs/{id}: remove a finished job from the registry
//   - GET /api/media/info: probe a media file
//   - POST /api/thumbnail: extract a thumbnail frame
//
// Operational endpoints (/healthz, /livez, /readyz, /version) follow the
// usual Kubernetes conventions. Prometheus metrics are served separately,
// see [Server.MetricsHandler].
package server
