package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/voxsum/voxsum/internal/api"
	"github.com/voxsum/voxsum/internal/database"
	"github.com/voxsum/voxsum/internal/metrics"
	"github.com/voxsum/voxsum/internal/storage"
	"github.com/voxsum/voxsum/internal/transcribe"
)

// InboxWatcher monitors a drop directory for new audio files and feeds them
// into the transcription pipeline. This provides a hands-off alternative to
// HTTP uploads: copy a recording into the inbox and it becomes a note.
type InboxWatcher struct {
	db       *database.DB
	store    storage.AudioStore
	queue    *transcribe.WorkerPool
	publish  api.PublishFunc
	inboxDir string
	log      zerolog.Logger

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc

	// Debounce: coalesce rapid Create+Write events on the same file.
	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer

	filesIngested atomic.Int64
	filesSkipped  atomic.Int64
	status        atomic.Value // string: "starting", "watching", "stopped"
}

// NewInboxWatcher creates a watcher for the given inbox directory.
func NewInboxWatcher(db *database.DB, store storage.AudioStore, queue *transcribe.WorkerPool, publish api.PublishFunc, inboxDir string, log zerolog.Logger) *InboxWatcher {
	ctx, cancel := context.WithCancel(context.Background())
	iw := &InboxWatcher{
		db:             db,
		store:          store,
		queue:          queue,
		publish:        publish,
		inboxDir:       inboxDir,
		log:            log.With().Str("component", "inbox_watcher").Logger(),
		ctx:            ctx,
		cancel:         cancel,
		debounceTimers: make(map[string]*time.Timer),
	}
	iw.status.Store("starting")
	return iw
}

// Start initializes the fsnotify watcher and processes any files already
// sitting in the inbox.
func (iw *InboxWatcher) Start() error {
	if err := os.MkdirAll(iw.inboxDir, 0o755); err != nil {
		return fmt.Errorf("create inbox dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	iw.watcher = w

	if err := w.Add(iw.inboxDir); err != nil {
		w.Close()
		return fmt.Errorf("watch inbox dir: %w", err)
	}

	go iw.watchLoop()
	go iw.sweepExisting()

	iw.status.Store("watching")
	iw.log.Info().Str("inbox_dir", iw.inboxDir).Msg("inbox watcher started")
	return nil
}

// Stop closes the fsnotify watcher and cancels in-flight processing.
func (iw *InboxWatcher) Stop() {
	iw.status.Store("stopped")
	iw.cancel()
	if iw.watcher != nil {
		iw.watcher.Close()
	}
	iw.log.Info().
		Int64("files_ingested", iw.filesIngested.Load()).
		Int64("files_skipped", iw.filesSkipped.Load()).
		Msg("inbox watcher stopped")
}

// Status returns the current watcher status for the health endpoint.
func (iw *InboxWatcher) Status() string {
	s, _ := iw.status.Load().(string)
	return s
}

func (iw *InboxWatcher) watchLoop() {
	for {
		select {
		case <-iw.ctx.Done():
			return

		case event, ok := <-iw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
				continue
			}
			if _, _, ok := transcribe.SupportedFormat(event.Name); !ok {
				continue
			}
			iw.scheduleIngest(event.Name)

		case err, ok := <-iw.watcher.Errors:
			if !ok {
				return
			}
			iw.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// sweepExisting ingests files already present in the inbox at startup.
func (iw *InboxWatcher) sweepExisting() {
	entries, err := os.ReadDir(iw.inboxDir)
	if err != nil {
		iw.log.Warn().Err(err).Msg("inbox sweep failed")
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, _, ok := transcribe.SupportedFormat(e.Name()); !ok {
			continue
		}
		select {
		case <-iw.ctx.Done():
			return
		default:
		}
		iw.ingestFile(filepath.Join(iw.inboxDir, e.Name()))
	}
}

// scheduleIngest debounces file processing by 500ms. This coalesces rapid
// Create+Write events and ensures the file is fully written before reading.
func (iw *InboxWatcher) scheduleIngest(path string) {
	iw.debounceMu.Lock()
	defer iw.debounceMu.Unlock()

	if t, ok := iw.debounceTimers[path]; ok {
		t.Reset(500 * time.Millisecond)
		return
	}

	iw.debounceTimers[path] = time.AfterFunc(500*time.Millisecond, func() {
		iw.debounceMu.Lock()
		delete(iw.debounceTimers, path)
		iw.debounceMu.Unlock()

		iw.ingestFile(path)
	})
}

// ingestFile reads an audio file from the inbox, stores it, creates a note,
// and queues transcription. The inbox copy is removed once stored.
func (iw *InboxWatcher) ingestFile(path string) {
	filename := filepath.Base(path)
	ext, contentType, ok := transcribe.SupportedFormat(filename)
	if !ok {
		iw.filesSkipped.Add(1)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		iw.log.Warn().Err(err).Str("path", path).Msg("failed to read inbox file")
		iw.filesSkipped.Add(1)
		return
	}
	if len(data) == 0 {
		iw.filesSkipped.Add(1)
		return
	}

	ctx, cancel := context.WithTimeout(iw.ctx, 30*time.Second)
	defer cancel()

	key := fmt.Sprintf("%s/%d-%s", time.Now().UTC().Format("2006-01-02"), time.Now().UnixNano(), filename)
	if err := iw.store.Save(ctx, key, data, contentType); err != nil {
		iw.log.Error().Err(err).Str("path", path).Msg("failed to store inbox audio")
		return
	}

	note, err := iw.db.InsertNote(ctx, &database.Note{
		Source:   database.SourceInbox,
		Filename: filename,
		AudioKey: key,
		AudioFmt: ext,
		Status:   database.StatusPending,
	})
	if err != nil {
		iw.log.Error().Err(err).Str("path", path).Msg("failed to create note for inbox file")
		return
	}

	if !iw.queue.Enqueue(transcribe.Job{NoteID: note.ID, AudioKey: key, Filename: filename}) {
		_ = iw.db.MarkFailed(ctx, note.ID, "transcription queue full")
		iw.log.Warn().Int64("note_id", note.ID).Msg("queue full, inbox file marked failed")
	}

	if err := os.Remove(path); err != nil {
		iw.log.Warn().Err(err).Str("path", path).Msg("failed to remove ingested inbox file")
	}

	iw.filesIngested.Add(1)
	metrics.InboxFilesTotal.Inc()

	if iw.publish != nil {
		iw.publish("note_created", note.ID, map[string]any{
			"note_id":  note.ID,
			"source":   note.Source,
			"filename": filename,
		})
	}

	iw.log.Info().Int64("note_id", note.ID).Str("filename", filename).Msg("inbox file ingested")
}
