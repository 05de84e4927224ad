package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, status := range []string{"completed", "failed", "cancelled"} {
		TranscodeJobsTotal.WithLabelValues(status)
	}

	for _, status := range []string{"success", "error"} {
		ProbesTotal.WithLabelValues(status)
		ThumbnailsTotal.WithLabelValues(status)
	}
}
