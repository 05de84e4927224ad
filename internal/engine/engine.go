package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"streamvio-transcoder/internal/logging"
	"streamvio-transcoder/internal/media"
)

// FFmpeg runs transcodes by invoking the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
}

// New creates an FFmpeg engine. Empty paths fall back to resolving
// "ffmpeg" and "ffprobe" on PATH.
func New(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// Available reports whether the ffmpeg binary can be resolved.
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.ffmpegPath)
	return err == nil
}

// Transcode converts inputPath into outputPath according to opts,
// reporting progress in [0,100] through onProgress. It observes ctx: on
// cancellation the ffmpeg process is killed, the temporary output is
// removed and ctx.Err() is returned.
func (f *FFmpeg) Transcode(ctx context.Context, inputPath, outputPath string, opts media.TranscodeOptions, onProgress func(int)) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	totalMs, err := f.probeDurationMs(ctx, inputPath)
	if err != nil {
		logging.Debug("Duration probe failed for %s: %v (no intermediate progress)", inputPath, err)
	}

	ext := filepath.Ext(outputPath)
	tmpPath := strings.TrimSuffix(outputPath, ext) + ".tmp" + ext
	_ = os.Remove(tmpPath)

	args := buildArgs(inputPath, tmpPath, opts)
	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logging.Debug("Running %s %s", f.ffmpegPath, strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}

	parseProgress(stdout, totalMs, onProgress)

	if err := cmd.Wait(); err != nil {
		_ = os.Remove(tmpPath)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, stderrTail(&stderr))
	}

	_ = os.Remove(outputPath)
	if err := os.Rename(tmpPath, outputPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("moving output into place: %w", err)
	}

	// 100 only once the output is in place; a failed rename must not
	// leave a failed job reporting completion.
	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

// probeDurationMs returns the source duration in milliseconds, or 0 when
// it cannot be determined.
func (f *FFmpeg) probeDurationMs(ctx context.Context, inputPath string) (int64, error) {
	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=nokey=1:noprint_wrappers=1",
		inputPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, err
	}
	value := strings.TrimSpace(string(out))
	if value == "" || value == "N/A" {
		return 0, fmt.Errorf("duration missing")
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	return int64(seconds * 1000), nil
}

// stderrTail returns the last few lines of ffmpeg's stderr, which is
// where the actionable error message ends up.
func stderrTail(buf *bytes.Buffer) string {
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, " | ")
}
