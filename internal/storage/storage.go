package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/voxsum/voxsum/internal/config"
)

// AudioStore abstracts uploaded-audio storage backends.
type AudioStore interface {
	// Save stores audio data. key format: {YYYY-MM-DD}/{filename}
	Save(ctx context.Context, key string, data []byte, contentType string) error

	// LocalPath returns the local filesystem path if the file exists on disk.
	// Returns "" if not available locally.
	LocalPath(key string) string

	// URL returns a presigned URL for the audio file.
	// Returns "" for local-only backends.
	URL(ctx context.Context, key string) (string, error)

	// Open returns a reader for the audio file.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the audio file from all backends.
	Delete(ctx context.Context, key string) error

	// Exists checks if an audio file exists.
	Exists(ctx context.Context, key string) bool

	// Type returns "local" or "s3".
	Type() string
}

// New creates an AudioStore based on config. Returns the store and optional
// background services (pruner) that the caller must Start/Stop.
// Returns an error if S3 is configured but unreachable.
func New(cfg config.S3Config, dataDir string, log zerolog.Logger) (AudioStore, []BackgroundService, error) {
	local := NewLocalStore(dataDir)

	var services []BackgroundService

	if !cfg.Enabled() {
		if cfg.CacheRetention > 0 {
			// No remote copy exists to fall back on; expired audio is gone
			// for good while the note's transcript and summary survive.
			log.Warn().Dur("retention", cfg.CacheRetention).
				Msg("UPLOAD_RETENTION set without S3: expired audio will be deleted permanently")
			services = append(services, NewUploadPruner(dataDir, cfg.CacheRetention, nil, log))
		}
		return local, services, nil
	}

	s3store, err := NewS3Store(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("S3 init failed: %w", err)
	}

	// Startup validation: verify credentials and bucket access
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3store.HeadBucket(ctx); err != nil {
		return nil, nil, fmt.Errorf("S3 startup check failed (bucket=%q endpoint=%q): %w",
			cfg.Bucket, cfg.Endpoint, err)
	}
	log.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("S3 connection verified")

	if !cfg.LocalCache {
		return s3store, nil, nil
	}

	// Tiered mode: local copy for transcription, S3 for durability.
	tiered := NewTieredStore(s3store, local, log)
	if cfg.CacheRetention > 0 {
		services = append(services, NewUploadPruner(dataDir, cfg.CacheRetention, s3store, log))
	}
	return tiered, services, nil
}

// BackgroundService is a stoppable background goroutine.
type BackgroundService interface {
	Start()
	Stop()
}
