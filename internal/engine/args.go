package engine

import (
	"fmt"

	"streamvio-transcoder/internal/media"
)

// videoEncoders maps the codec names callers use (codec of the produced
// stream) to the ffmpeg encoder implementing them.
var videoEncoders = map[string]string{
	"h264": "libx264",
	"h265": "libx265",
	"hevc": "libx265",
	"vp8":  "libvpx",
	"vp9":  "libvpx-vp9",
	"av1":  "libaom-av1",
}

var audioEncoders = map[string]string{
	"aac":    "aac",
	"opus":   "libopus",
	"mp3":    "libmp3lame",
	"vorbis": "libvorbis",
	"flac":   "flac",
}

func videoEncoderFor(codec string) string {
	if enc, ok := videoEncoders[codec]; ok {
		return enc
	}
	return codec
}

func audioEncoderFor(codec string) string {
	if enc, ok := audioEncoders[codec]; ok {
		return enc
	}
	return codec
}

// buildArgs translates transcode options into an ffmpeg argument list.
// A stream whose options request no change is copied instead of
// re-encoded; requesting a bitrate or a resize forces a re-encode with
// the container's default codec unless one was named.
func buildArgs(inputPath, outputPath string, opts media.TranscodeOptions) []string {
	args := []string{"-y"}

	if opts.HardwareAccel {
		args = append(args, "-hwaccel", "auto")
	}

	args = append(args, "-i", inputPath, "-progress", "pipe:1", "-nostats")

	reencodeVideo := opts.VideoCodec != "" || opts.VideoBitrate > 0 || opts.Width > 0 || opts.Height > 0
	switch {
	case !reencodeVideo:
		args = append(args, "-c:v", "copy")
	case opts.VideoCodec != "":
		args = append(args, "-c:v", videoEncoderFor(opts.VideoCodec))
	}
	if opts.VideoBitrate > 0 {
		args = append(args, "-b:v", fmt.Sprintf("%dk", opts.VideoBitrate))
	}
	if opts.Width > 0 || opts.Height > 0 {
		// -2 keeps the source dimension while preserving the aspect
		// ratio and an even pixel count.
		w, h := opts.Width, opts.Height
		if w == 0 {
			w = -2
		}
		if h == 0 {
			h = -2
		}
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", w, h))
	}

	reencodeAudio := opts.AudioCodec != "" || opts.AudioBitrate > 0
	switch {
	case !reencodeAudio:
		args = append(args, "-c:a", "copy")
	case opts.AudioCodec != "":
		args = append(args, "-c:a", audioEncoderFor(opts.AudioCodec))
	}
	if opts.AudioBitrate > 0 {
		args = append(args, "-b:a", fmt.Sprintf("%dk", opts.AudioBitrate))
	}

	if opts.Format != "" {
		args = append(args, "-f", opts.Format)
	}

	return append(args, outputPath)
}
