package storage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// UploadPruner evicts uploaded audio from local disk once it passes the
// retention window. When an S3 store is configured, a file is only removed
// after verifying it exists in S3 so the note's audio stays retrievable.
// Without S3 the retention is absolute: expired audio is deleted outright
// and only the note's transcript and summary remain.
type UploadPruner struct {
	dataDir   string
	retention time.Duration
	interval  time.Duration
	s3        *S3Store
	log       zerolog.Logger
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewUploadPruner creates a pruner that removes local uploads older than retention.
func NewUploadPruner(dataDir string, retention time.Duration, s3 *S3Store, log zerolog.Logger) *UploadPruner {
	return &UploadPruner{
		dataDir:   dataDir,
		retention: retention,
		interval:  1 * time.Hour,
		s3:        s3,
		log:       log.With().Str("component", "upload-pruner").Logger(),
		stop:      make(chan struct{}),
	}
}

func (p *UploadPruner) Start() {
	go p.loop()
}

func (p *UploadPruner) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

func (p *UploadPruner) loop() {
	// Run once on startup to clear any backlog from downtime
	p.prune()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.prune()
		case <-p.stop:
			return
		}
	}
}

func (p *UploadPruner) prune() {
	if p.retention == 0 {
		return
	}

	cutoff := time.Now().Add(-p.retention)
	var prunedCount int
	var prunedBytes int64
	var skippedNotInS3 int

	filepath.WalkDir(p.dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.ModTime().After(cutoff) {
			return nil
		}
		rel, relErr := filepath.Rel(p.dataDir, path)
		if relErr != nil {
			return nil
		}
		key := filepath.ToSlash(rel)

		if p.s3 != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			inS3 := p.s3.Exists(ctx, key)
			cancel()
			if !inS3 {
				skippedNotInS3++
				return nil
			}
		}

		if rmErr := os.Remove(path); rmErr != nil {
			p.log.Warn().Err(rmErr).Str("path", path).Msg("failed to prune file")
			return nil
		}
		prunedCount++
		prunedBytes += info.Size()
		return nil
	})

	if prunedCount > 0 || skippedNotInS3 > 0 {
		p.log.Info().
			Int("pruned", prunedCount).
			Int64("bytes", prunedBytes).
			Int("skipped_not_in_s3", skippedNotInS3).
			Msg("upload prune pass complete")
	}
}
