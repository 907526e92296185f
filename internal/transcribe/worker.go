package transcribe

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/voxsum/voxsum/internal/database"
	"github.com/voxsum/voxsum/internal/metrics"
	"github.com/voxsum/voxsum/internal/storage"
)

// Job represents a transcription job for a single note.
type Job struct {
	NoteID   int64
	AudioKey string
	Filename string
}

// QueueStats reports the current state of the transcription queue.
type QueueStats struct {
	Pending   int   `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// EventPublishFunc is a callback for publishing note lifecycle events.
type EventPublishFunc func(eventType string, noteID int64, payload map[string]any)

// WorkerPoolOptions configures the transcription worker pool.
type WorkerPoolOptions struct {
	DB           *database.DB
	Store        storage.AudioStore
	Provider     Provider
	Temperature  float64
	Language     string
	Timeout      time.Duration
	Preprocess   bool
	Workers      int
	QueueSize    int
	PublishEvent EventPublishFunc
	Log          zerolog.Logger
}

// WorkerPool manages transcription workers.
type WorkerPool struct {
	jobs   chan Job
	db     *database.DB
	store  storage.AudioStore
	stt    Provider
	opts   WorkerPoolOptions
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closed    atomic.Bool
	completed atomic.Int64
	failed    atomic.Int64
}

// NewWorkerPool creates a new transcription worker pool.
func NewWorkerPool(opts WorkerPoolOptions) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		jobs:   make(chan Job, opts.QueueSize),
		db:     opts.DB,
		store:  opts.Store,
		stt:    opts.Provider,
		opts:   opts,
		log:    opts.Log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	if wp.opts.Preprocess {
		if CheckFFmpeg() {
			wp.log.Info().Msg("audio preprocessing enabled (ffmpeg found)")
		} else {
			wp.log.Warn().Msg("PREPROCESS_AUDIO=true but ffmpeg not found in PATH; preprocessing disabled")
		}
	}

	for i := 0; i < wp.opts.Workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.log.Info().Int("workers", wp.opts.Workers).Int("queue_size", wp.opts.QueueSize).Msg("transcription worker pool started")
}

// Stop signals workers to drain and waits for completion.
func (wp *WorkerPool) Stop() {
	wp.closed.Store(true)
	close(wp.jobs)
	wp.wg.Wait()
	wp.cancel()
	wp.log.Info().
		Int64("completed", wp.completed.Load()).
		Int64("failed", wp.failed.Load()).
		Msg("transcription worker pool stopped")
}

// Enqueue adds a job to the transcription queue. Returns false if the queue
// is full or the pool has been stopped.
func (wp *WorkerPool) Enqueue(j Job) bool {
	if wp.closed.Load() {
		return false
	}
	select {
	case wp.jobs <- j:
		return true
	default:
		return false
	}
}

// Stats returns current queue statistics.
func (wp *WorkerPool) Stats() QueueStats {
	return QueueStats{
		Pending:   len(wp.jobs),
		Completed: wp.completed.Load(),
		Failed:    wp.failed.Load(),
	}
}

// Provider returns the configured STT provider name.
func (wp *WorkerPool) Provider() string { return wp.stt.Name() }

// Model returns the configured STT model name.
func (wp *WorkerPool) Model() string { return wp.stt.Model() }

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int { return wp.opts.Workers }

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log := wp.log.With().Int("worker", id).Logger()

	for job := range wp.jobs {
		if err := wp.processJob(log, job); err != nil {
			wp.failed.Add(1)
			metrics.TranscriptionsTotal.WithLabelValues("failed").Inc()
			log.Warn().Err(err).Int64("note_id", job.NoteID).Msg("transcription failed")

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if dbErr := wp.db.MarkFailed(ctx, job.NoteID, err.Error()); dbErr != nil {
				log.Error().Err(dbErr).Int64("note_id", job.NoteID).Msg("failed to record error on note")
			}
			cancel()

			if wp.opts.PublishEvent != nil {
				wp.opts.PublishEvent("transcription_failed", job.NoteID, map[string]any{
					"note_id": job.NoteID,
					"error":   err.Error(),
				})
			}
		} else {
			wp.completed.Add(1)
			metrics.TranscriptionsTotal.WithLabelValues("ok").Inc()
		}
	}
}

func (wp *WorkerPool) processJob(log zerolog.Logger, job Job) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(wp.ctx, wp.opts.Timeout+10*time.Second)
	defer cancel()

	if err := wp.db.MarkTranscribing(ctx, job.NoteID); err != nil {
		return fmt.Errorf("mark transcribing: %w", err)
	}

	// 1. Resolve audio to a local file
	audioPath, pathCleanup, err := wp.localAudio(ctx, job.AudioKey)
	if err != nil {
		return fmt.Errorf("resolve audio: %w", err)
	}
	defer pathCleanup()

	// 2. Audio preprocessing (optional)
	transcribePath := audioPath
	if wp.opts.Preprocess {
		processed, cleanup, err := Preprocess(ctx, audioPath)
		if err != nil {
			log.Warn().Err(err).Msg("preprocessing failed, using original audio")
		} else {
			transcribePath = processed
			defer cleanup()
		}
	}

	// 3. Send to the STT provider
	resp, err := wp.stt.Transcribe(ctx, transcribePath, TranscribeOpts{
		Temperature: wp.opts.Temperature,
		Language:    wp.opts.Language,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", wp.stt.Name(), err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return fmt.Errorf("%s: no speech detected in audio", wp.stt.Name())
	}

	wordCount := len(strings.Fields(text))
	durationMs := int(time.Since(start).Milliseconds())

	// 4. Store the transcript
	err = wp.db.SetTranscript(ctx, job.NoteID, text, resp.Language, wp.stt.Name(), wp.stt.Model(), wordCount, durationMs)
	if err != nil {
		return fmt.Errorf("db update: %w", err)
	}

	// 5. Publish lifecycle event
	if wp.opts.PublishEvent != nil {
		wp.opts.PublishEvent("transcription", job.NoteID, map[string]any{
			"note_id":     job.NoteID,
			"word_count":  wordCount,
			"language":    resp.Language,
			"provider":    wp.stt.Name(),
			"model":       wp.stt.Model(),
			"duration_ms": durationMs,
		})
	}

	log.Debug().
		Int64("note_id", job.NoteID).
		Int("words", wordCount).
		Int("duration_ms", durationMs).
		Msg("transcription complete")

	return nil
}

// localAudio returns a local filesystem path for the stored audio, downloading
// from the remote backend to a temp file when no local copy exists.
func (wp *WorkerPool) localAudio(ctx context.Context, key string) (string, func(), error) {
	noop := func() {}

	if p := wp.store.LocalPath(key); p != "" {
		return p, noop, nil
	}

	r, err := wp.store.Open(ctx, key)
	if err != nil {
		return "", noop, err
	}
	defer r.Close()

	tmp, err := os.CreateTemp("", "voxsum-audio-*"+sanitizeExt(key))
	if err != nil {
		return "", noop, err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", noop, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", noop, err
	}
	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}

func sanitizeExt(key string) string {
	if i := strings.LastIndex(key, "."); i >= 0 && len(key)-i <= 5 {
		return key[i:]
	}
	return ""
}
