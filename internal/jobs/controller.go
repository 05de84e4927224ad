package jobs

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"streamvio-transcoder/internal/logging"
	"streamvio-transcoder/internal/media"
	"streamvio-transcoder/internal/metrics"
)

// Engine performs the actual media transform. It must observe ctx for
// cooperative cancellation and report integer progress in [0,100] through
// onProgress; the callback may be invoked from the engine's own goroutine.
type Engine interface {
	Transcode(ctx context.Context, inputPath, outputPath string, opts media.TranscodeOptions, onProgress func(int)) error
}

// Prober inspects a media file and returns its structured description.
type Prober interface {
	Probe(ctx context.Context, path string) (media.Descriptor, error)
}

// Extractor grabs a single frame from a media file and writes it as an
// image to outputPath.
type Extractor interface {
	Extract(ctx context.Context, inputPath, outputPath string, offsetMs, width, height int) error
}

// Controller is the public contract of the transcode job manager. It
// validates submissions, drives the codec engine asynchronously, and
// exposes polling, cancellation, probing and thumbnail extraction.
type Controller struct {
	registry   *Registry
	dispatcher *Dispatcher
	engine     Engine
	prober     Prober
	extractor  Extractor

	slots chan struct{}
	wg    sync.WaitGroup

	mu      sync.Mutex
	cancels map[ID]context.CancelFunc
}

// NewController creates a controller running at most maxJobs transcodes
// concurrently (minimum 1).
func NewController(engine Engine, prober Prober, extractor Extractor, maxJobs int) *Controller {
	if maxJobs < 1 {
		maxJobs = 1
	}
	registry := NewRegistry()
	return &Controller{
		registry:   registry,
		dispatcher: NewDispatcher(registry),
		engine:     engine,
		prober:     prober,
		extractor:  extractor,
		slots:      make(chan struct{}, maxJobs),
		cancels:    make(map[ID]context.CancelFunc),
	}
}

// Submit validates a transcode request, creates a Pending job and
// dispatches the work asynchronously. It returns without waiting for the
// engine. Validation failures (ErrInvalidOptions, ErrInputNotFound,
// ErrDuplicateOutput) are returned here; failures during the asynchronous
// work are recorded on the job record instead.
func (c *Controller) Submit(inputPath, outputPath string, opts media.TranscodeOptions, observer Observer) (ID, error) {
	if err := opts.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInputNotFound, inputPath)
	}

	id, err := c.registry.Create(inputPath, outputPath, opts)
	if err != nil {
		return "", err
	}
	c.dispatcher.Subscribe(id, observer)

	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancels[id] = cancel
	c.mu.Unlock()

	metrics.TranscodeJobsActive.Inc()
	c.wg.Add(1)
	go c.run(ctx, id, inputPath, outputPath, opts)

	logging.Info("Transcode job %s submitted: %s -> %s", id, inputPath, outputPath)
	return id, nil
}

func (c *Controller) run(ctx context.Context, id ID, inputPath, outputPath string, opts media.TranscodeOptions) {
	defer c.wg.Done()
	defer metrics.TranscodeJobsActive.Dec()
	defer c.dispatcher.Unsubscribe(id)
	defer c.clearCancel(id)

	// A cancellation may arrive while the job is still waiting for a
	// transcode slot; in that case the status is already Cancelled.
	select {
	case c.slots <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-c.slots }()

	if err := c.registry.SetStatus(id, StatusRunning); err != nil {
		// Cancelled before the slot was acquired.
		return
	}

	start := time.Now()
	err := c.engine.Transcode(ctx, inputPath, outputPath, opts, func(p int) {
		c.dispatcher.Publish(id, p)
	})

	switch {
	case err == nil:
		if serr := c.registry.SetStatus(id, StatusCompleted); serr != nil {
			// The engine finished after a cancellation signal;
			// Cancelled stands.
			logging.Debug("Job %s finished after cancellation, keeping cancelled status", id)
			return
		}
		metrics.TranscodeJobsTotal.WithLabelValues(StatusCompleted.String()).Inc()
		metrics.TranscodeDuration.Observe(time.Since(start).Seconds())
		logging.Info("Transcode job %s completed in %s", id, time.Since(start).Round(time.Millisecond))
	case ctx.Err() != nil:
		logging.Info("Transcode job %s stopped after cancellation", id)
	default:
		_ = c.registry.SetError(id, err.Error())
		if serr := c.registry.SetStatus(id, StatusFailed); serr != nil {
			logging.Debug("Job %s failed after cancellation, keeping cancelled status", id)
			return
		}
		metrics.TranscodeJobsTotal.WithLabelValues(StatusFailed.String()).Inc()
		logging.Error("Transcode job %s failed: %v", id, err)
	}
}

// Cancel requests cancellation of a Pending or Running job. The status is
// marked Cancelled immediately and the engine is signalled to stop; Cancel
// does not wait for the engine or for the job's observer, so an observer
// may cancel its own job from inside its progress callback. It returns
// false if the job is unknown or already terminal.
func (c *Controller) Cancel(id ID) bool {
	if err := c.registry.SetStatus(id, StatusCancelled); err != nil {
		return false
	}

	c.mu.Lock()
	cancel := c.cancels[id]
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	// Mute rather than Unsubscribe: the latter waits for an in-flight
	// callback, which deadlocks when that callback is the caller. The
	// job goroutine's deferred Unsubscribe does the blocking release.
	c.dispatcher.Mute(id)
	metrics.TranscodeJobsTotal.WithLabelValues(StatusCancelled.String()).Inc()
	logging.Info("Transcode job %s cancelled", id)
	return true
}

// Progress returns the last recorded progress for a job.
func (c *Controller) Progress(id ID) (int, error) {
	rec, err := c.registry.Get(id)
	if err != nil {
		return 0, err
	}
	return rec.Progress, nil
}

// Get returns a snapshot of a job record.
func (c *Controller) Get(id ID) (Record, error) {
	return c.registry.Get(id)
}

// List returns snapshots of all retained job records, newest first.
func (c *Controller) List() []Record {
	return c.registry.List()
}

// Reap removes a terminal job record.
func (c *Controller) Reap(id ID) error {
	return c.registry.Reap(id)
}

// Probe returns the structured description of a media file. Probes are
// request/response and not job-tracked.
func (c *Controller) Probe(ctx context.Context, path string) (media.Descriptor, error) {
	return c.prober.Probe(ctx, path)
}

// Thumbnail extracts a single frame to outputPath. Extractions are
// request/response and not job-tracked.
func (c *Controller) Thumbnail(ctx context.Context, inputPath, outputPath string, offsetMs, width, height int) error {
	return c.extractor.Extract(ctx, inputPath, outputPath, offsetMs, width, height)
}

// EngineReady reports whether the engine can run jobs right now. Engines
// that cannot tell (fakes, remote engines) are assumed ready.
func (c *Controller) EngineReady() bool {
	if e, ok := c.engine.(interface{ Available() bool }); ok {
		return e.Available()
	}
	return true
}

// Close cancels all active jobs and waits for their goroutines to finish.
func (c *Controller) Close() {
	for _, id := range c.registry.Active() {
		c.Cancel(id)
	}
	c.wg.Wait()
}

func (c *Controller) clearCancel(id ID) {
	c.mu.Lock()
	cancel := c.cancels[id]
	delete(c.cancels, id)
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
