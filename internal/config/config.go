package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`

	DataDir     string `env:"DATA_DIR" envDefault:"./data"`
	InboxDir    string `env:"INBOX_DIR"`
	MaxUploadMB int    `env:"MAX_UPLOAD_MB" envDefault:"64"`

	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"120s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	AuthToken string `env:"AUTH_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	STT     STTConfig
	Summary SummaryConfig
	Mail    MailConfig
	MQTT    MQTTConfig
	S3      S3Config
}

// STTConfig selects and configures the speech-to-text provider.
type STTConfig struct {
	Provider    string        `env:"STT_PROVIDER" envDefault:"whisper"` // whisper, elevenlabs, deepinfra
	Language    string        `env:"STT_LANGUAGE" envDefault:"en"`
	Timeout     time.Duration `env:"STT_TIMEOUT" envDefault:"5m"`
	Workers     int           `env:"TRANSCRIBE_WORKERS" envDefault:"2"`
	QueueSize   int           `env:"TRANSCRIBE_QUEUE" envDefault:"64"`
	Preprocess  bool          `env:"PREPROCESS_AUDIO" envDefault:"true"`
	Temperature float64       `env:"WHISPER_TEMPERATURE" envDefault:"0"`

	WhisperURL      string `env:"WHISPER_URL" envDefault:"http://localhost:8000/v1/audio/transcriptions"`
	WhisperModel    string `env:"WHISPER_MODEL" envDefault:"base"`
	ElevenLabsKey   string `env:"ELEVENLABS_API_KEY"`
	ElevenLabsModel string `env:"ELEVENLABS_MODEL" envDefault:"scribe_v1"`
	DeepInfraKey    string `env:"DEEPINFRA_API_KEY"`
	DeepInfraModel  string `env:"DEEPINFRA_STT_MODEL" envDefault:"openai/whisper-large-v3-turbo"`
}

// SummaryConfig selects and configures the summarization provider.
type SummaryConfig struct {
	Provider   string        `env:"SUMMARY_PROVIDER" envDefault:"deepinfra"` // deepinfra, openai
	Timeout    time.Duration `env:"SUMMARY_TIMEOUT" envDefault:"2m"`
	ChunkWords int           `env:"SUMMARY_CHUNK_WORDS" envDefault:"800"`
	MinLength  int           `env:"SUMMARY_MIN_LENGTH" envDefault:"30"`
	MaxLength  int           `env:"SUMMARY_MAX_LENGTH" envDefault:"130"`

	DeepInfraKey   string `env:"DEEPINFRA_API_KEY"`
	DeepInfraModel string `env:"DEEPINFRA_SUMMARY_MODEL" envDefault:"facebook/bart-large-cnn"`
	OpenAIKey      string `env:"OPENAI_API_KEY"`
	OpenAIModel    string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
}

// MailConfig holds SMTP credentials for sending summaries.
// SenderEmail and SenderPass empty means mail is unconfigured; the API
// reports that instead of attempting a send.
type MailConfig struct {
	SenderEmail string        `env:"MAIL_SENDER_EMAIL"`
	SenderPass  string        `env:"MAIL_SENDER_PASS"`
	SMTPHost    string        `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort    int           `env:"SMTP_PORT" envDefault:"465"`
	Timeout     time.Duration `env:"SMTP_TIMEOUT" envDefault:"30s"`
}

// MQTTConfig configures the optional lifecycle-event publisher.
// Empty BrokerURL disables MQTT entirely.
type MQTTConfig struct {
	BrokerURL   string `env:"MQTT_BROKER_URL"`
	ClientID    string `env:"MQTT_CLIENT_ID" envDefault:"voxsum"`
	TopicPrefix string `env:"MQTT_TOPIC_PREFIX" envDefault:"voxsum"`
	Username    string `env:"MQTT_USERNAME"`
	Password    string `env:"MQTT_PASSWORD"`
}

// S3Config configures optional object storage for uploaded audio.
type S3Config struct {
	Bucket          string        `env:"S3_BUCKET"`
	Region          string        `env:"S3_REGION" envDefault:"us-east-1"`
	Endpoint        string        `env:"S3_ENDPOINT"`
	AccessKey       string        `env:"S3_ACCESS_KEY"`
	SecretKey       string        `env:"S3_SECRET_KEY"`
	Prefix          string        `env:"S3_PREFIX"`
	PresignExpiry   time.Duration `env:"S3_PRESIGN_EXPIRY" envDefault:"15m"`
	LocalCache      bool          `env:"S3_LOCAL_CACHE" envDefault:"true"`
	CacheRetention  time.Duration `env:"UPLOAD_RETENTION"`
}

// Enabled reports whether S3 storage is configured.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

// Configured reports whether SMTP credentials are present.
func (c MailConfig) Configured() bool { return c.SenderEmail != "" && c.SenderPass != "" }

// Enabled reports whether the MQTT publisher is configured.
func (c MQTTConfig) Enabled() bool { return c.BrokerURL != "" }

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile     string
	HTTPAddr    string
	LogLevel    string
	DatabaseURL string
	DataDir     string
	InboxDir    string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Apply CLI overrides (non-empty values win)
	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.DatabaseURL != "" {
		cfg.DatabaseURL = overrides.DatabaseURL
	}
	if overrides.DataDir != "" {
		cfg.DataDir = overrides.DataDir
	}
	if overrides.InboxDir != "" {
		cfg.InboxDir = overrides.InboxDir
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.STT.Provider {
	case "whisper", "elevenlabs", "deepinfra":
	default:
		return fmt.Errorf("unknown STT_PROVIDER %q (want whisper, elevenlabs, or deepinfra)", c.STT.Provider)
	}
	switch c.Summary.Provider {
	case "deepinfra", "openai":
	default:
		return fmt.Errorf("unknown SUMMARY_PROVIDER %q (want deepinfra or openai)", c.Summary.Provider)
	}
	if c.STT.Provider == "elevenlabs" && c.STT.ElevenLabsKey == "" {
		return fmt.Errorf("STT_PROVIDER=elevenlabs requires ELEVENLABS_API_KEY")
	}
	if c.STT.Provider == "deepinfra" && c.STT.DeepInfraKey == "" {
		return fmt.Errorf("STT_PROVIDER=deepinfra requires DEEPINFRA_API_KEY")
	}
	if c.Summary.Provider == "openai" && c.Summary.OpenAIKey == "" {
		return fmt.Errorf("SUMMARY_PROVIDER=openai requires OPENAI_API_KEY")
	}
	if c.STT.Workers < 1 {
		return fmt.Errorf("TRANSCRIBE_WORKERS must be >= 1")
	}
	return nil
}
