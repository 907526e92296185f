package mailer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/voxsum/voxsum/internal/config"
)

func TestSend_NotConfigured(t *testing.T) {
	m := New(config.MailConfig{SMTPHost: "smtp.gmail.com", SMTPPort: 465, Timeout: time.Second}, zerolog.Nop())

	if m.Configured() {
		t.Error("Configured() = true without credentials")
	}

	err := m.Send(context.Background(), "someone@example.com", "Your Summary", "body")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestSend_InvalidRecipient(t *testing.T) {
	m := New(config.MailConfig{
		SenderEmail: "sender@example.com",
		SenderPass:  "app-pass",
		SMTPHost:    "smtp.gmail.com",
		SMTPPort:    465,
		Timeout:     time.Second,
	}, zerolog.Nop())

	// Address validation happens before any network dial.
	err := m.Send(context.Background(), "not-an-address", "subject", "body")
	if err == nil {
		t.Fatal("expected error for invalid recipient address")
	}
	if errors.Is(err, ErrNotConfigured) {
		t.Fatal("configured mailer reported ErrNotConfigured")
	}
}
