package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"streamvio-transcoder/internal/jobs"
	"streamvio-transcoder/internal/logging"
	"streamvio-transcoder/internal/metrics"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Default thumbnail dimensions when the caller leaves them zero.
const (
	DefaultWidth  = 320
	DefaultHeight = 180
)

// ErrExtraction indicates the frame could not be extracted or encoded.
var ErrExtraction = errors.New("thumbnail extraction failed")

// Extractor grabs frames with ffmpeg and writes resized thumbnails.
type Extractor struct {
	ffmpegPath string
}

// New creates an Extractor. An empty path resolves "ffmpeg" on PATH.
func New(ffmpegPath string) *Extractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Extractor{ffmpegPath: ffmpegPath}
}

// Extract grabs the frame at offsetMs from inputPath and writes it as a
// width×height image to outputPath. Zero dimensions fall back to the
// defaults; the output encoding follows the output file extension.
func (e *Extractor) Extract(ctx context.Context, inputPath, outputPath string, offsetMs, width, height int) error {
	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("%w: %s", jobs.ErrInputNotFound, inputPath)
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if offsetMs < 0 {
		offsetMs = 0
	}

	start := time.Now()
	img, err := e.grabFrame(ctx, inputPath, offsetMs)
	if err != nil {
		metrics.ThumbnailsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	thumb := imaging.Resize(img, width, height, imaging.Lanczos)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		metrics.ThumbnailsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: creating output directory: %v", ErrExtraction, err)
	}
	if err := imaging.Save(thumb, outputPath); err != nil {
		metrics.ThumbnailsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: encoding %s: %v", ErrExtraction, outputPath, err)
	}

	metrics.ThumbnailsTotal.WithLabelValues("success").Inc()
	metrics.ThumbnailDuration.Observe(time.Since(start).Seconds())
	logging.Debug("Thumbnail written: %s (%dx%d from %s @%dms)", outputPath, width, height, inputPath, offsetMs)
	return nil
}

// grabFrame asks ffmpeg for a single PNG frame on stdout. Seeking past
// the end of short files makes ffmpeg produce nothing, so a failed seek
// is retried from the start of the file.
func (e *Extractor) grabFrame(ctx context.Context, inputPath string, offsetMs int) (image.Image, error) {
	data, err := e.runFrameGrab(ctx, inputPath, offsetMs)
	if err != nil && offsetMs > 0 {
		logging.Debug("Frame grab at %dms failed for %s: %v, retrying from start", offsetMs, inputPath, err)
		data, err = e.runFrameGrab(ctx, inputPath, 0)
	}
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding ffmpeg output: %w", err)
	}
	return img, nil
}

func (e *Extractor) runFrameGrab(ctx context.Context, inputPath string, offsetMs int) ([]byte, error) {
	args := []string{}
	if offsetMs > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", float64(offsetMs)/1000))
	}
	args = append(args,
		"-i", inputPath,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %v: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", inputPath)
	}
	return stdout.Bytes(), nil
}
