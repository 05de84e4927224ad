package jobs

import (
	"errors"
	"sync"
	"testing"

	"streamvio-transcoder/internal/media"
)

func TestRegistry_Create_DuplicateActiveOutput(t *testing.T) {
	r := NewRegistry()

	first, err := r.Create("a.mkv", "out.mp4", media.TranscodeOptions{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := r.Create("b.mkv", "out.mp4", media.TranscodeOptions{}); !errors.Is(err, ErrDuplicateOutput) {
		t.Fatalf("second Create() error = %v, want ErrDuplicateOutput", err)
	}

	// A different output path is accepted concurrently.
	if _, err := r.Create("b.mkv", "other.mp4", media.TranscodeOptions{}); err != nil {
		t.Fatalf("Create() with distinct output error = %v", err)
	}

	// Once the first job is terminal the output path is free again.
	mustSetStatus(t, r, first, StatusRunning)
	mustSetStatus(t, r, first, StatusCompleted)

	second, err := r.Create("c.mkv", "out.mp4", media.TranscodeOptions{})
	if err != nil {
		t.Fatalf("Create() after terminal error = %v", err)
	}
	if second == first {
		t.Fatal("job ids must never be reused")
	}
}

func TestRegistry_SetProgress(t *testing.T) {
	tests := []struct {
		name   string
		values []int
		want   int
	}{
		{"monotonic", []int{10, 30, 60}, 60},
		{"decreasing ignored", []int{50, 20}, 50},
		{"clamped high", []int{150}, 100},
		{"clamped low", []int{-5}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			id, err := r.Create("a.mkv", "out.mp4", media.TranscodeOptions{})
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			for _, v := range tt.values {
				if err := r.SetProgress(id, v); err != nil {
					t.Fatalf("SetProgress(%d) error = %v", v, err)
				}
			}
			rec, err := r.Get(id)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if rec.Progress != tt.want {
				t.Errorf("Progress = %d, want %d", rec.Progress, tt.want)
			}
		})
	}
}

func TestRegistry_SetProgress_UnknownJob(t *testing.T) {
	r := NewRegistry()
	if err := r.SetProgress("no-such-job", 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetProgress() error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_SetStatus_EnforcesStateMachine(t *testing.T) {
	r := NewRegistry()
	id, err := r.Create("a.mkv", "out.mp4", media.TranscodeOptions{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Pending cannot complete directly.
	if err := r.SetStatus(id, StatusCompleted); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("SetStatus(pending -> completed) error = %v, want ErrInvalidTransition", err)
	}

	mustSetStatus(t, r, id, StatusRunning)
	mustSetStatus(t, r, id, StatusCompleted)

	// Terminal states have no outgoing transitions.
	if err := r.SetStatus(id, StatusRunning); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("SetStatus on terminal job error = %v, want ErrInvalidTransition", err)
	}

	rec, err := r.Get(id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Progress != 100 {
		t.Errorf("completed job Progress = %d, want 100", rec.Progress)
	}
	if rec.FinishedAt.IsZero() {
		t.Error("completed job has zero FinishedAt")
	}
}

func TestRegistry_SetStatus_CancelKeepsProgress(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Create("a.mkv", "out.mp4", media.TranscodeOptions{})
	mustSetStatus(t, r, id, StatusRunning)
	if err := r.SetProgress(id, 42); err != nil {
		t.Fatalf("SetProgress() error = %v", err)
	}
	mustSetStatus(t, r, id, StatusCancelled)

	rec, _ := r.Get(id)
	if rec.Progress != 42 {
		t.Errorf("cancelled job Progress = %d, want 42 (not forced to 100)", rec.Progress)
	}

	// Progress arriving after cancellation is dropped, not an error.
	if err := r.SetProgress(id, 80); err != nil {
		t.Fatalf("SetProgress() after cancel error = %v", err)
	}
	rec, _ = r.Get(id)
	if rec.Progress != 42 {
		t.Errorf("post-cancel Progress = %d, want 42", rec.Progress)
	}
}

func TestRegistry_Reap(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Create("a.mkv", "out.mp4", media.TranscodeOptions{})

	if err := r.Reap(id); !errors.Is(err, ErrStillActive) {
		t.Fatalf("Reap() on pending job error = %v, want ErrStillActive", err)
	}

	mustSetStatus(t, r, id, StatusRunning)
	mustSetStatus(t, r, id, StatusFailed)

	if err := r.Reap(id); err != nil {
		t.Fatalf("Reap() on terminal job error = %v", err)
	}
	if _, err := r.Get(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after Reap error = %v, want ErrNotFound", err)
	}
	if err := r.Reap(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Reap() error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Create("a.mkv", "out.mp4", media.TranscodeOptions{})
	mustSetStatus(t, r, id, StatusRunning)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(base int) {
			defer wg.Done()
			for p := 0; p <= 100; p += 5 {
				_ = r.SetProgress(id, p)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				rec, err := r.Get(id)
				if err != nil {
					t.Errorf("Get() error = %v", err)
					return
				}
				if rec.Progress < 0 || rec.Progress > 100 {
					t.Errorf("torn read: Progress = %d", rec.Progress)
					return
				}
			}
		}()
	}
	wg.Wait()

	rec, _ := r.Get(id)
	if rec.Progress != 100 {
		t.Errorf("final Progress = %d, want 100", rec.Progress)
	}
}

func mustSetStatus(t *testing.T, r *Registry, id ID, s Status) {
	t.Helper()
	if err := r.SetStatus(id, s); err != nil {
		t.Fatalf("SetStatus(%s) error = %v", s, err)
	}
}
