// Package probe wraps ffprobe to produce a structured description of a
// media file: container format, duration, stream codecs and parameters,
// and free-form container metadata.
package probe
