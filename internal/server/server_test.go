package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"streamvio-transcoder/internal/jobs"
	"streamvio-transcoder/internal/media"
	"streamvio-transcoder/internal/startup"
)

type fakeEngine struct {
	transcode func(ctx context.Context, inputPath, outputPath string, opts media.TranscodeOptions, onProgress func(int)) error
}

func (e *fakeEngine) Transcode(ctx context.Context, inputPath, outputPath string, opts media.TranscodeOptions, onProgress func(int)) error {
	if e.transcode != nil {
		return e.transcode(ctx, inputPath, outputPath, opts, onProgress)
	}
	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

type fakeProber struct {
	descriptor media.Descriptor
	err        error
}

func (p *fakeProber) Probe(_ context.Context, _ string) (media.Descriptor, error) {
	return p.descriptor, p.err
}

type fakeExtractor struct {
	err error
}

func (e *fakeExtractor) Extract(_ context.Context, _, _ string, _, _, _ int) error {
	return e.err
}

func newTestServer(t *testing.T, engine jobs.Engine, prober jobs.Prober, extractor jobs.Extractor) *Server {
	t.Helper()
	if engine == nil {
		engine = &fakeEngine{}
	}
	if prober == nil {
		prober = &fakeProber{}
	}
	if extractor == nil {
		extractor = &fakeExtractor{}
	}

	controller := jobs.NewController(engine, prober, extractor, 2)
	t.Cleanup(controller.Close)

	return New(controller, &startup.Config{
		OutputDir:       t.TempDir(),
		Port:            "8080",
		MetricsPort:     "9090",
		LogHealthChecks: true,
	})
}

func writeTestInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.mp4")
	if err := os.WriteFile(path, []byte("not really a video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func submitJob(t *testing.T, srv *Server, input, output string) jobs.ID {
	t.Helper()
	body, _ := json.Marshal(TranscodeRequest{Input: input, Output: output})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/transcode", bytes.NewReader(body))
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d, body %s", w.Code, w.Body.String())
	}

	var resp TranscodeResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding submit response: %v", err)
	}
	if resp.JobID == "" {
		t.Fatal("expected a job ID")
	}
	return resp.JobID
}

func waitForStatus(t *testing.T, srv *Server, id jobs.ID, want jobs.Status) jobs.Record {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		record, err := srv.controller.Get(id)
		if err != nil {
			t.Fatalf("Get(%s): %v", id, err)
		}
		if record.Status == want {
			return record
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", id, want)
	return jobs.Record{}
}

func TestSubmitTranscode(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	input := writeTestInput(t)
	output := filepath.Join(t.TempDir(), "out.webm")

	id := submitJob(t, srv, input, output)
	record := waitForStatus(t, srv, id, jobs.StatusCompleted)

	if record.Progress != 100 {
		t.Errorf("Progress = %d, want 100", record.Progress)
	}
}

func TestSubmitTranscodeRelativeOutput(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	input := writeTestInput(t)

	id := submitJob(t, srv, input, "clips/out.mp4")
	record := waitForStatus(t, srv, id, jobs.StatusCompleted)

	want := filepath.Join(srv.config.OutputDir, "clips", "out.mp4")
	if record.OutputPath != want {
		t.Errorf("OutputPath = %q, want %q", record.OutputPath, want)
	}
}

func TestSubmitTranscodeValidation(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	input := writeTestInput(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			name:       "malformed JSON",
			body:       "{not json",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing output",
			body:       fmt.Sprintf(`{"input":%q}`, input),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing input file",
			body:       `{"input":"/no/such/file.mp4","output":"/tmp/out.mp4"}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "negative width",
			body:       fmt.Sprintf(`{"input":%q,"output":"/tmp/out.mp4","options":{"width":-1}}`, input),
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/transcode", strings.NewReader(tt.body))
			srv.Router().ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestSubmitTranscodeDuplicateOutput(t *testing.T) {
	release := make(chan struct{})
	engine := &fakeEngine{
		transcode: func(ctx context.Context, _, _ string, _ media.TranscodeOptions, _ func(int)) error {
			select {
			case <-release:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
	srv := newTestServer(t, engine, nil, nil)
	defer close(release)

	input := writeTestInput(t)
	output := filepath.Join(t.TempDir(), "out.mp4")

	submitJob(t, srv, input, output)

	body, _ := json.Marshal(TranscodeRequest{Input: input, Output: output})
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/transcode", bytes.NewReader(body))
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestGetJob(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	input := writeTestInput(t)
	id := submitJob(t, srv, input, filepath.Join(t.TempDir(), "out.mp4"))
	waitForStatus(t, srv, id, jobs.StatusCompleted)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/jobs/"+string(id), nil)
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var record jobs.Record
	if err := json.NewDecoder(w.Body).Decode(&record); err != nil {
		t.Fatal(err)
	}
	if record.ID != id {
		t.Errorf("ID = %s, want %s", record.ID, id)
	}
	if record.Status != jobs.StatusCompleted {
		t.Errorf("Status = %s, want %s", record.Status, jobs.StatusCompleted)
	}
}

func TestGetJobNotFound(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/jobs/no-such-job", nil)
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestListJobs(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	// Empty list is a JSON array, not null
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("empty list body = %q, want []", w.Body.String())
	}

	input := writeTestInput(t)
	id := submitJob(t, srv, input, filepath.Join(t.TempDir(), "out.mp4"))
	waitForStatus(t, srv, id, jobs.StatusCompleted)

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	srv.Router().ServeHTTP(w, r)

	var records []jobs.Record
	if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 job, got %d", len(records))
	}
}

func TestGetJobProgress(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	input := writeTestInput(t)
	id := submitJob(t, srv, input, filepath.Join(t.TempDir(), "out.mp4"))
	waitForStatus(t, srv, id, jobs.StatusCompleted)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/jobs/"+string(id)+"/progress", nil)
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp ProgressResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Progress != 100 {
		t.Errorf("Progress = %d, want 100", resp.Progress)
	}
	if resp.Status != jobs.StatusCompleted {
		t.Errorf("Status = %s, want %s", resp.Status, jobs.StatusCompleted)
	}
}

func TestCancelJob(t *testing.T) {
	started := make(chan struct{})
	engine := &fakeEngine{
		transcode: func(ctx context.Context, _, _ string, _ media.TranscodeOptions, _ func(int)) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	}
	srv := newTestServer(t, engine, nil, nil)

	input := writeTestInput(t)
	id := submitJob(t, srv, input, filepath.Join(t.TempDir(), "out.mp4"))
	<-started

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/jobs/"+string(id)+"/cancel", nil)
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	record := waitForStatus(t, srv, id, jobs.StatusCancelled)
	if record.Status != jobs.StatusCancelled {
		t.Errorf("Status = %s, want %s", record.Status, jobs.StatusCancelled)
	}

	// Cancelling again conflicts
	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/api/jobs/"+string(id)+"/cancel", nil)
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusConflict {
		t.Errorf("second cancel status = %d, want 409", w.Code)
	}
}

func TestCancelJobNotFound(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/jobs/ghost/cancel", nil)
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestReapJob(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	input := writeTestInput(t)
	id := submitJob(t, srv, input, filepath.Join(t.TempDir(), "out.mp4"))
	waitForStatus(t, srv, id, jobs.StatusCompleted)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/api/jobs/"+string(id), nil)
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	// Gone now
	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/api/jobs/"+string(id), nil)
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status after reap = %d, want 404", w.Code)
	}
}

func TestReapActiveJobConflicts(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	engine := &fakeEngine{
		transcode: func(ctx context.Context, _, _ string, _ media.TranscodeOptions, _ func(int)) error {
			close(started)
			select {
			case <-release:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
	srv := newTestServer(t, engine, nil, nil)
	defer close(release)

	input := writeTestInput(t)
	id := submitJob(t, srv, input, filepath.Join(t.TempDir(), "out.mp4"))
	<-started

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/api/jobs/"+string(id), nil)
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestGetMediaInfo(t *testing.T) {
	prober := &fakeProber{
		descriptor: media.Descriptor{
			Path:       "/media/clip.mp4",
			Format:     "mp4",
			DurationMs: 90000,
			Width:      1280,
			Height:     720,
			VideoCodec: "h264",
		},
	}
	srv := newTestServer(t, nil, prober, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/media/info?path=/media/clip.mp4", nil)
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var descriptor media.Descriptor
	if err := json.NewDecoder(w.Body).Decode(&descriptor); err != nil {
		t.Fatal(err)
	}
	if descriptor.Format != "mp4" || descriptor.Width != 1280 {
		t.Errorf("unexpected descriptor: %+v", descriptor)
	}
}

func TestGetMediaInfoMissingPath(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/media/info", nil)
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetMediaInfoProbeFailure(t *testing.T) {
	prober := &fakeProber{err: jobs.ErrInputNotFound}
	srv := newTestServer(t, nil, prober, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/media/info?path=/nope.mp4", nil)
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestExtractThumbnail(t *testing.T) {
	srv := newTestServer(t, nil, nil, &fakeExtractor{})

	body := `{"input":"/media/clip.mp4","output":"/tmp/thumb.jpg","offsetMs":5000}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/thumbnail", strings.NewReader(body))
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestExtractThumbnailValidation(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/thumbnail", strings.NewReader(`{"input":"/a.mp4"}`))
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	router := srv.Router()

	for _, path := range []string{"/health", "/healthz", "/livez", "/readyz", "/version"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, path, nil)
			router.ServeHTTP(w, r)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
		})
	}
}

type unavailableEngine struct {
	fakeEngine
}

func (e *unavailableEngine) Available() bool { return false }

func TestReadinessReflectsEngineAvailability(t *testing.T) {
	srv := newTestServer(t, &unavailableEngine{}, nil, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unavailable") {
		t.Errorf("body = %s, want engine unavailable", w.Body.String())
	}
}

func TestHealthCheckCountsActiveJobs(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	engine := &fakeEngine{
		transcode: func(ctx context.Context, _, _ string, _ media.TranscodeOptions, _ func(int)) error {
			close(started)
			select {
			case <-release:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
	srv := newTestServer(t, engine, nil, nil)
	defer close(release)

	input := writeTestInput(t)
	submitJob(t, srv, input, filepath.Join(t.TempDir(), "out.mp4"))
	<-started

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.Router().ServeHTTP(w, r)

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ActiveJobs != 1 {
		t.Errorf("ActiveJobs = %d, want 1", resp.ActiveJobs)
	}
	if resp.TotalJobs != 1 {
		t.Errorf("TotalJobs = %d, want 1", resp.TotalJobs)
	}
}
