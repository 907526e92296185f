package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/voxsum/voxsum/internal/api"
	"github.com/voxsum/voxsum/internal/config"
	"github.com/voxsum/voxsum/internal/database"
	"github.com/voxsum/voxsum/internal/ingest"
	"github.com/voxsum/voxsum/internal/mailer"
	"github.com/voxsum/voxsum/internal/mqttclient"
	"github.com/voxsum/voxsum/internal/storage"
	"github.com/voxsum/voxsum/internal/summarize"
	"github.com/voxsum/voxsum/internal/transcribe"
	"github.com/voxsum/voxsum/web"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file (default .env)")
	flag.StringVar(&overrides.HTTPAddr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	flag.StringVar(&overrides.DatabaseURL, "database-url", "", "PostgreSQL DSN (overrides DATABASE_URL)")
	flag.StringVar(&overrides.DataDir, "data-dir", "", "audio storage directory (overrides DATA_DIR)")
	flag.StringVar(&overrides.InboxDir, "inbox-dir", "", "watched ingest directory (overrides INBOX_DIR)")
	flag.Parse()

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("voxsum starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	dbLog := log.With().Str("component", "database").Logger()
	db, err := database.Connect(ctx, cfg.DatabaseURL, dbLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize schema")
	}
	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Audio storage (local, S3, or tiered)
	storeLog := log.With().Str("component", "storage").Logger()
	store, storeServices, err := storage.New(cfg.S3, cfg.DataDir, storeLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize audio storage")
	}
	for _, svc := range storeServices {
		svc.Start()
		defer svc.Stop()
	}

	// Event bus for SSE subscribers, optionally mirrored to MQTT
	bus := ingest.NewEventBus(256)

	var mqtt *mqttclient.Client
	if cfg.MQTT.Enabled() {
		mqttLog := log.With().Str("component", "mqtt").Logger()
		mqtt, err = mqttclient.Connect(mqttclient.Options{
			BrokerURL:   cfg.MQTT.BrokerURL,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			Log:         mqttLog,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to mqtt broker")
		}
		defer mqtt.Close()
	}

	publish := func(eventType string, noteID int64, payload map[string]any) {
		bus.Publish(eventType, noteID, payload)
		if mqtt != nil {
			mqtt.Publish("notes/"+eventType, payload)
		}
	}

	// Speech-to-text provider and worker pool
	stt := buildSTTProvider(cfg)
	pool := transcribe.NewWorkerPool(transcribe.WorkerPoolOptions{
		DB:           db,
		Store:        store,
		Provider:     stt,
		Temperature:  cfg.STT.Temperature,
		Language:     cfg.STT.Language,
		Timeout:      cfg.STT.Timeout,
		Preprocess:   cfg.STT.Preprocess,
		Workers:      cfg.STT.Workers,
		QueueSize:    cfg.STT.QueueSize,
		PublishEvent: publish,
		Log:          log.With().Str("component", "transcribe").Logger(),
	})
	pool.Start()
	defer pool.Stop()

	// Summarization engine
	engine := summarize.NewEngine(buildSummaryProvider(cfg), cfg.Summary.ChunkWords,
		log.With().Str("component", "summarize").Logger())

	// Mailer (usable even when unconfigured; the API reports that state)
	sender := mailer.New(cfg.Mail, log)
	if !sender.Configured() {
		log.Warn().Msg("email not configured: set MAIL_SENDER_EMAIL and MAIL_SENDER_PASS to enable sending")
	}

	// Optional inbox watcher
	var watcherStatus func() string
	if cfg.InboxDir != "" {
		watcher := ingest.NewInboxWatcher(db, store, pool, publish, cfg.InboxDir, log)
		if err := watcher.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start inbox watcher")
		}
		defer watcher.Stop()
		watcherStatus = watcher.Status
	}

	var mqttConnected func() bool
	if mqtt != nil {
		mqttConnected = mqtt.IsConnected
	}

	// HTTP server
	srv := api.NewServer(api.ServerOptions{
		Config:        cfg,
		DB:            db,
		Store:         store,
		Queue:         pool,
		Summarizer:    engine,
		Sender:        sender,
		Events:        bus,
		Publish:       publish,
		MQTTConnected: mqttConnected,
		WatcherStatus: watcherStatus,
		WebFS:         web.FS,
		Version:       version,
		StartTime:     startTime,
		Log:           log.With().Str("component", "http").Logger(),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("voxsum stopped")
}

func buildSTTProvider(cfg *config.Config) transcribe.Provider {
	switch cfg.STT.Provider {
	case "elevenlabs":
		return transcribe.NewElevenLabsClient(cfg.STT.ElevenLabsKey, cfg.STT.ElevenLabsModel, cfg.STT.Timeout)
	case "deepinfra":
		return transcribe.NewDeepInfraClient(cfg.STT.DeepInfraKey, cfg.STT.DeepInfraModel, cfg.STT.Timeout)
	default:
		return transcribe.NewWhisperClient(cfg.STT.WhisperURL, "", cfg.STT.WhisperModel, cfg.STT.Timeout)
	}
}

func buildSummaryProvider(cfg *config.Config) summarize.Provider {
	if cfg.Summary.Provider == "openai" {
		return summarize.NewOpenAIClient(cfg.Summary.OpenAIKey, cfg.Summary.OpenAIModel, cfg.Summary.Timeout)
	}
	return summarize.NewDeepInfraClient(cfg.Summary.DeepInfraKey, cfg.Summary.DeepInfraModel, cfg.Summary.Timeout)
}
