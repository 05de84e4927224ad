/*
Package workers determines how many transcodes may run concurrently.

Transcoding is CPU-bound, so the default is one ffmpeg process per
available CPU. GOMAXPROCS is used instead of runtime.NumCPU() because it
respects container CPU limits (Go 1.19+): a pod limited to 2 cores on a
64-core node gets 2 transcode slots, not 64.

Operators can override the calculation with the TRANSCODE_WORKERS
environment variable:

	env:
	- name: TRANSCODE_WORKERS
	  value: "4"

Always pass a limit when calling from code that could run on very large
machines; use 0 for no limit.
*/
package workers
