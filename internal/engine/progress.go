package engine

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// parseProgress consumes ffmpeg's -progress key=value stream and reports
// percentages through onProgress. Values are monotonically increasing and
// capped at 99; the final 100 is reported by the caller only after ffmpeg
// exits cleanly. totalMs is the probed source duration; with an unknown
// duration no intermediate progress can be computed.
func parseProgress(r io.Reader, totalMs int64, onProgress func(int)) {
	if totalMs <= 0 || onProgress == nil {
		_, _ = io.Copy(io.Discard, r)
		return
	}

	scanner := bufio.NewScanner(r)
	last := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		// out_time_us carries the current output timestamp in
		// microseconds (as does out_time_ms, despite its name).
		if key != "out_time_us" && key != "out_time_ms" {
			continue
		}
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil || us < 0 {
			continue
		}
		percent := int(float64(us/1000) / float64(totalMs) * 100)
		if percent > 99 {
			percent = 99
		}
		if percent > last {
			last = percent
			onProgress(percent)
		}
	}
}
