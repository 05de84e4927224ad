package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"streamvio-transcoder/internal/engine"
	"streamvio-transcoder/internal/jobs"
	"streamvio-transcoder/internal/logging"
	"streamvio-transcoder/internal/media"
	"streamvio-transcoder/internal/memory"
	"streamvio-transcoder/internal/metrics"
	"streamvio-transcoder/internal/probe"
	"streamvio-transcoder/internal/server"
	"streamvio-transcoder/internal/startup"
	"streamvio-transcoder/internal/thumbnail"
)

const usage = `streamvio-transcoder - media probing and transcoding

Usage:
  streamvio-transcoder info <file>
  streamvio-transcoder transcode <input> <output> [flags]
  streamvio-transcoder thumbnail <input> <output> [offsetMs]
  streamvio-transcoder serve
  streamvio-transcoder version

Transcode flags:
  --format <name>     Container format (mp4, webm, mkv, ...)
  --vcodec <name>     Video codec (h264, hevc, vp9, av1, ...)
  --acodec <name>     Audio codec (aac, opus, mp3, ...)
  --vbitrate <kbps>   Video bitrate in kbit/s
  --abitrate <kbps>   Audio bitrate in kbit/s
  --width <px>        Output width (height preserved when omitted)
  --height <px>       Output height (width preserved when omitted)
  --no-hwaccel        Disable hardware-accelerated decoding

Environment:
  FFMPEG_PATH, FFPROBE_PATH   Tool locations (default: found in PATH)
  LOG_LEVEL                   debug, info, warn, error (default: info)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "info":
		err = runInfo(os.Args[2:])
	case "transcode":
		err = runTranscode(os.Args[2:])
	case "thumbnail":
		err = runThumbnail(os.Args[2:])
	case "serve":
		err = runServe()
	case "version":
		info := startup.GetBuildInfo()
		fmt.Printf("streamvio-transcoder %s (%s, built %s, %s)\n", info.Version, info.Commit, info.BuildTime, info.GoVersion)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func toolPaths() (string, string) {
	ffmpegPath := os.Getenv("FFMPEG_PATH")
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	ffprobePath := os.Getenv("FFPROBE_PATH")
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return ffmpegPath, ffprobePath
}

func newController(maxJobs int) *jobs.Controller {
	ffmpegPath, ffprobePath := toolPaths()
	eng := engine.New(ffmpegPath, ffprobePath)
	prober := probe.New(ffprobePath)
	extractor := thumbnail.New(ffmpegPath)
	return jobs.NewController(eng, prober, extractor, maxJobs)
}

func runInfo(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: streamvio-transcoder info <file>")
	}

	_, ffprobePath := toolPaths()
	prober := probe.New(ffprobePath)

	descriptor, err := prober.Probe(context.Background(), args[0])
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(descriptor, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runTranscode(args []string) error {
	fs := flag.NewFlagSet("transcode", flag.ContinueOnError)
	format := fs.String("format", "", "container format")
	vcodec := fs.String("vcodec", "", "video codec")
	acodec := fs.String("acodec", "", "audio codec")
	vbitrate := fs.Int("vbitrate", 0, "video bitrate in kbit/s")
	abitrate := fs.Int("abitrate", 0, "audio bitrate in kbit/s")
	width := fs.Int("width", 0, "output width")
	height := fs.Int("height", 0, "output height")
	noHWAccel := fs.Bool("no-hwaccel", false, "disable hardware acceleration")

	// Positional arguments come first: transcode <input> <output> [flags]
	if len(args) < 2 {
		return errors.New("usage: streamvio-transcoder transcode <input> <output> [flags]")
	}
	input, output := args[0], args[1]
	if err := fs.Parse(args[2:]); err != nil {
		return err
	}

	opts := media.TranscodeOptions{
		Format:        *format,
		VideoCodec:    *vcodec,
		AudioCodec:    *acodec,
		VideoBitrate:  *vbitrate,
		AudioBitrate:  *abitrate,
		Width:         *width,
		Height:        *height,
		HardwareAccel: !*noHWAccel,
	}

	controller := newController(1)
	defer controller.Close()

	id, err := controller.Submit(input, output, opts, func(progress int) {
		fmt.Printf("\rProgress: %d%%", progress)
	})
	if err != nil {
		return err
	}

	// Cancel the job on Ctrl+C so the partial output gets cleaned up
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nCancelling...")
		controller.Cancel(id)
	}()

	record, err := waitForJob(controller, id)
	if err != nil {
		return err
	}

	switch record.Status {
	case jobs.StatusCompleted:
		fmt.Printf("\rProgress: 100%%\nDone: %s\n", output)
		return nil
	case jobs.StatusCancelled:
		return errors.New("transcode cancelled")
	default:
		return fmt.Errorf("transcode failed: %s", record.Error)
	}
}

func waitForJob(controller *jobs.Controller, id jobs.ID) (jobs.Record, error) {
	for {
		record, err := controller.Get(id)
		if err != nil {
			return jobs.Record{}, err
		}
		if record.Status.IsTerminal() {
			return record, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func runThumbnail(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return errors.New("usage: streamvio-transcoder thumbnail <input> <output> [offsetMs]")
	}

	offsetMs := 0
	if len(args) == 3 {
		parsed, err := strconv.Atoi(args[2])
		if err != nil || parsed < 0 {
			return fmt.Errorf("invalid offset %q: must be a non-negative integer", args[2])
		}
		offsetMs = parsed
	}

	ffmpegPath, _ := toolPaths()
	extractor := thumbnail.New(ffmpegPath)

	if err := extractor.Extract(context.Background(), args[0], args[1], offsetMs, 0, 0); err != nil {
		return err
	}
	fmt.Printf("Thumbnail written: %s\n", args[1])
	return nil
}

func runServe() error {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	metrics.InitializeMetrics()

	startup.LogEngineInit(config.FFmpegPath, config.FFprobePath)
	startup.LogControllerInit(config.MaxJobs)

	controller := newController(config.MaxJobs)
	srv := server.New(controller, config)

	router := srv.Router()
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	httpServer := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var metricsServer *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", srv.MetricsHandler())
		metricsServer = &http.Server{
			Addr:         ":" + config.MetricsPort,
			Handler:      metricsMux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(httpServer, metricsServer, controller)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func handleShutdown(httpServer, metricsServer *http.Server, controller *jobs.Controller) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := httpServer.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Cancelling active jobs")
	controller.Close()
	startup.LogShutdownStepComplete("Job controller stopped")

	if metricsServer != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsServer.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownComplete()
}
