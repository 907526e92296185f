package api

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/voxsum/voxsum/internal/config"
	"github.com/voxsum/voxsum/internal/database"
	"github.com/voxsum/voxsum/internal/metrics"
	"github.com/voxsum/voxsum/internal/storage"
)

// ServerOptions bundles the dependencies the HTTP server wires together.
type ServerOptions struct {
	Config     *config.Config
	DB         *database.DB
	Store      storage.AudioStore
	Queue      TranscribeQueue
	Summarizer Summarizer
	Sender     Sender
	Events     EventSource
	Publish    PublishFunc

	// Health probes for optional subsystems; nil means not configured.
	MQTTConnected func() bool
	WatcherStatus func() string

	// WebFS serves the embedded single-page UI at /.
	WebFS fs.FS

	Version   string
	StartTime time.Time
	Log       zerolog.Logger
}

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

func NewServer(opts ServerOptions) *Server {
	cfg := opts.Config
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(opts.Log))
	r.Use(metrics.InstrumentHandler)
	r.Use(CORS)

	// Health and metrics endpoints — no auth
	health := NewHealthHandler(opts.DB, opts.Queue, opts.Sender.Configured(),
		opts.MQTTConnected, opts.WatcherStatus, opts.Version, opts.StartTime)
	r.Get("/api/v1/health", health.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated API routes
	notes := NewNotesHandler(opts.DB, opts.Store, opts.Queue, opts.Summarizer,
		opts.Sender, cfg, opts.Publish, opts.Log)
	events := NewEventsHandler(opts.Events)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuth(cfg.AuthToken))
		notes.Routes(r)
		events.Routes(r)
	})

	// Embedded web UI
	if opts.WebFS != nil {
		r.Handle("/*", http.FileServer(http.FS(opts.WebFS)))
	}

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: opts.Log,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
