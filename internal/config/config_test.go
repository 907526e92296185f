package config

import (
	"os"
	"testing"
)

func setEnvs(t *testing.T, envs map[string]string) func() {
	t.Helper()
	saved := make(map[string]string, len(envs))
	for k, v := range envs {
		saved[k] = os.Getenv(k)
		os.Setenv(k, v)
	}
	return func() {
		for k, v := range saved {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}
}

func TestLoad(t *testing.T) {
	cleanup := setEnvs(t, map[string]string{
		"DATABASE_URL": "postgres://localhost/test",
	})
	defer cleanup()

	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPAddr != ":8080" {
			t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
		}
		if cfg.DataDir != "./data" {
			t.Errorf("DataDir = %q, want ./data", cfg.DataDir)
		}
		if cfg.STT.Provider != "whisper" {
			t.Errorf("STT.Provider = %q, want whisper", cfg.STT.Provider)
		}
		if cfg.Summary.Provider != "deepinfra" {
			t.Errorf("Summary.Provider = %q, want deepinfra", cfg.Summary.Provider)
		}
		if cfg.Summary.ChunkWords != 800 {
			t.Errorf("Summary.ChunkWords = %d, want 800", cfg.Summary.ChunkWords)
		}
		if cfg.Summary.MinLength != 30 || cfg.Summary.MaxLength != 130 {
			t.Errorf("summary lengths = %d/%d, want 30/130", cfg.Summary.MinLength, cfg.Summary.MaxLength)
		}
		if cfg.Mail.SMTPHost != "smtp.gmail.com" || cfg.Mail.SMTPPort != 465 {
			t.Errorf("SMTP = %s:%d, want smtp.gmail.com:465", cfg.Mail.SMTPHost, cfg.Mail.SMTPPort)
		}
		if cfg.Mail.Configured() {
			t.Error("Mail.Configured() = true with no credentials set")
		}
		if cfg.MQTT.Enabled() {
			t.Error("MQTT.Enabled() = true with no broker set")
		}
	})

	t.Run("cli_overrides_take_priority", func(t *testing.T) {
		cfg, err := Load(Overrides{
			EnvFile:     "nonexistent.env",
			HTTPAddr:    ":9090",
			LogLevel:    "debug",
			DatabaseURL: "postgres://override/db",
			DataDir:     "/tmp/voxsum",
		})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPAddr != ":9090" {
			t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
		}
		if cfg.DatabaseURL != "postgres://override/db" {
			t.Errorf("DatabaseURL = %q, want override", cfg.DatabaseURL)
		}
		if cfg.DataDir != "/tmp/voxsum" {
			t.Errorf("DataDir = %q, want /tmp/voxsum", cfg.DataDir)
		}
	})

	t.Run("unknown_stt_provider_rejected", func(t *testing.T) {
		c := setEnvs(t, map[string]string{"STT_PROVIDER": "siri"})
		defer c()
		if _, err := Load(Overrides{EnvFile: "nonexistent.env"}); err == nil {
			t.Error("Load accepted unknown STT provider")
		}
	})

	t.Run("provider_requires_key", func(t *testing.T) {
		c := setEnvs(t, map[string]string{"STT_PROVIDER": "elevenlabs"})
		defer c()
		if _, err := Load(Overrides{EnvFile: "nonexistent.env"}); err == nil {
			t.Error("Load accepted elevenlabs provider without API key")
		}
	})

	t.Run("openai_summary_requires_key", func(t *testing.T) {
		c := setEnvs(t, map[string]string{"SUMMARY_PROVIDER": "openai"})
		defer c()
		if _, err := Load(Overrides{EnvFile: "nonexistent.env"}); err == nil {
			t.Error("Load accepted openai summarizer without API key")
		}
	})
}
