// Package metrics defines the Prometheus metrics exported by the
// transcoder: job lifecycle counters, transcode durations, probe and
// thumbnail operation counters, and HTTP metrics for the API server.
//
// Metrics are registered with the default registry via promauto at
// package load. Call InitializeMetrics once at startup so every expected
// label combination is exported from the first scrape.
package metrics
