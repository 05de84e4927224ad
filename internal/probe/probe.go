package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"streamvio-transcoder/internal/jobs"
	"streamvio-transcoder/internal/logging"
	"streamvio-transcoder/internal/media"
	"streamvio-transcoder/internal/metrics"
)

// ErrUnreadable indicates the file exists but ffprobe could not make
// sense of it.
var ErrUnreadable = errors.New("unreadable media")

// FFprobe inspects media files by invoking the ffprobe binary.
type FFprobe struct {
	ffprobePath string
}

// New creates an FFprobe prober. An empty path resolves "ffprobe" on PATH.
func New(ffprobePath string) *FFprobe {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFprobe{ffprobePath: ffprobePath}
}

// Probe returns the structured description of the media file at path.
func (f *FFprobe) Probe(ctx context.Context, path string) (media.Descriptor, error) {
	if _, err := os.Stat(path); err != nil {
		return media.Descriptor{}, fmt.Errorf("%w: %s", jobs.ErrInputNotFound, path)
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		metrics.ProbesTotal.WithLabelValues("error").Inc()
		return media.Descriptor{}, fmt.Errorf("%w: %s: ffprobe: %v", ErrUnreadable, path, err)
	}

	desc, err := decodeOutput(stdout.Bytes(), path)
	if err != nil {
		metrics.ProbesTotal.WithLabelValues("error").Inc()
		return media.Descriptor{}, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}

	metrics.ProbesTotal.WithLabelValues("success").Inc()
	metrics.ProbeDuration.Observe(time.Since(start).Seconds())
	logging.Debug("Probed %s: format=%s duration=%dms", path, desc.Format, desc.DurationMs)
	return desc, nil
}

type ffprobeFormat struct {
	FormatName string            `json:"format_name"`
	Duration   string            `json:"duration"`
	Tags       map[string]string `json:"tags"`
}

type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	BitRate    string `json:"bit_rate"`
	Channels   int    `json:"channels"`
	SampleRate string `json:"sample_rate"`
}

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

// decodeOutput converts an ffprobe JSON document into a Descriptor. The
// first video and first audio stream win; ffprobe lists them in container
// order.
func decodeOutput(data []byte, path string) (media.Descriptor, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return media.Descriptor{}, fmt.Errorf("decoding ffprobe output: %w", err)
	}

	desc := media.Descriptor{
		Path:     path,
		Format:   primaryFormat(out.Format.FormatName),
		Metadata: out.Format.Tags,
	}

	if seconds, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil && seconds > 0 {
		desc.DurationMs = int64(seconds * 1000)
	}

	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if desc.VideoCodec != "" {
				continue
			}
			desc.VideoCodec = s.CodecName
			desc.Width = s.Width
			desc.Height = s.Height
			desc.VideoBitrate = bitrateKbps(s.BitRate)
		case "audio":
			if desc.AudioCodec != "" {
				continue
			}
			desc.AudioCodec = s.CodecName
			desc.AudioBitrate = bitrateKbps(s.BitRate)
			desc.AudioChannels = s.Channels
			if rate, err := strconv.Atoi(s.SampleRate); err == nil {
				desc.AudioSampleRate = rate
			}
		}
	}

	return desc, nil
}

// primaryFormat picks the canonical name out of ffprobe's comma-separated
// demuxer list (e.g. "mov,mp4,m4a,3gp,3g2,mj2").
func primaryFormat(formatName string) string {
	name, _, _ := strings.Cut(formatName, ",")
	return name
}

func bitrateKbps(bps string) int {
	v, err := strconv.Atoi(bps)
	if err != nil || v <= 0 {
		return 0
	}
	return v / 1000
}
