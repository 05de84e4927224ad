// Package middleware provides HTTP middleware for the transcoder API server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics with job-ID path normalization
//   - Configurable filtering for health check endpoints
package middleware
