// Package media defines the passive value types shared across the
// transcoder: the Descriptor produced by probing a media file and the
// TranscodeOptions describing a requested conversion.
//
// Both types are plain values. A Descriptor is read-only after the probe
// that produced it; TranscodeOptions are validated once, at submission,
// and snapshotted into the job record.
package media
