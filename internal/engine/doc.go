// Package engine wraps ffmpeg as the codec engine behind the job
// controller. It builds an ffmpeg invocation from validated transcode
// options, reports percentage progress parsed from ffmpeg's machine
// readable -progress stream, and stops cooperatively when the job context
// is cancelled.
//
// Output is written to a temporary file next to the requested path and
// renamed into place only after ffmpeg exits cleanly, so a failed or
// cancelled transcode never leaves a half-written file at the output path.
package engine
