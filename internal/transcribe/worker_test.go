package transcribe

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestPool(workers, queueSize int) *WorkerPool {
	return NewWorkerPool(WorkerPoolOptions{
		Provider:  NewWhisperClient("http://localhost:0", "", "base", time.Second),
		Workers:   workers,
		QueueSize: queueSize,
		Timeout:   time.Second,
		Log:       zerolog.Nop(),
	})
}

func TestNewWorkerPool(t *testing.T) {
	wp := newTestPool(4, 100)
	if wp == nil {
		t.Fatal("NewWorkerPool returned nil")
	}
	if cap(wp.jobs) != 100 {
		t.Errorf("queue capacity = %d, want 100", cap(wp.jobs))
	}
}

func TestWorkerPool_EnqueueBeforeStart(t *testing.T) {
	wp := newTestPool(2, 5)
	// Enqueue should work even before Start() — it just buffers
	ok := wp.Enqueue(Job{NoteID: 1})
	if !ok {
		t.Error("Enqueue should return true when queue has space")
	}
}

func TestWorkerPool_EnqueueFull(t *testing.T) {
	wp := newTestPool(0, 2) // 0 workers = nobody draining

	wp.Enqueue(Job{NoteID: 1})
	wp.Enqueue(Job{NoteID: 2})

	// Queue is full (cap=2), third enqueue should return false
	ok := wp.Enqueue(Job{NoteID: 3})
	if ok {
		t.Error("Enqueue should return false when queue is full")
	}
}

func TestWorkerPool_EnqueueAfterStop(t *testing.T) {
	wp := newTestPool(1, 10)
	wp.Start()
	wp.Stop()

	ok := wp.Enqueue(Job{NoteID: 1})
	if ok {
		t.Error("Enqueue should return false after Stop()")
	}
}

func TestWorkerPool_Stats(t *testing.T) {
	wp := newTestPool(0, 10) // 0 workers so nothing drains

	wp.Enqueue(Job{NoteID: 1})
	wp.Enqueue(Job{NoteID: 2})

	stats := wp.Stats()
	if stats.Pending != 2 {
		t.Errorf("Pending = %d, want 2", stats.Pending)
	}
	if stats.Completed != 0 {
		t.Errorf("Completed = %d, want 0", stats.Completed)
	}
	if stats.Failed != 0 {
		t.Errorf("Failed = %d, want 0", stats.Failed)
	}
}

func TestWorkerPool_StopDrains(t *testing.T) {
	wp := newTestPool(2, 10)
	wp.Start()

	// Stop should return (not hang) even with no jobs
	done := make(chan struct{})
	go func() {
		wp.Stop()
		close(done)
	}()

	select {
	case <-done:
		// OK
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not return within 5 seconds")
	}
}

func TestWorkerPool_ProviderInfo(t *testing.T) {
	wp := newTestPool(1, 1)
	if wp.Provider() != "whisper" {
		t.Errorf("Provider() = %q, want whisper", wp.Provider())
	}
	if wp.Model() != "base" {
		t.Errorf("Model() = %q, want base", wp.Model())
	}
}
