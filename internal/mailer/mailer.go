package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/voxsum/voxsum/internal/config"
	gomail "github.com/wneessen/go-mail"
)

// ErrNotConfigured is returned before any connection attempt when SMTP
// credentials are missing.
var ErrNotConfigured = errors.New("email is not configured: set MAIL_SENDER_EMAIL and MAIL_SENDER_PASS")

// Mailer sends summaries over authenticated SMTP with implicit TLS
// (port 465 by default, matching Gmail app-password setups).
type Mailer struct {
	cfg config.MailConfig
	log zerolog.Logger
}

// New creates a Mailer. The mailer is usable even when unconfigured;
// Send reports ErrNotConfigured instead of attempting a connection.
func New(cfg config.MailConfig, log zerolog.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log.With().Str("component", "mailer").Logger()}
}

// Configured reports whether SMTP credentials are present.
func (m *Mailer) Configured() bool { return m.cfg.Configured() }

// Send delivers a plain-text message. Best effort: one SMTP transaction,
// no retries, no delivery confirmation beyond the transport result.
func (m *Mailer) Send(ctx context.Context, recipient, subject, body string) error {
	if !m.cfg.Configured() {
		return ErrNotConfigured
	}

	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.SenderEmail); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	client, err := gomail.NewClient(m.cfg.SMTPHost,
		gomail.WithPort(m.cfg.SMTPPort),
		gomail.WithSSL(),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.cfg.SenderEmail),
		gomail.WithPassword(m.cfg.SenderPass),
		gomail.WithTimeout(m.cfg.Timeout),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	m.log.Info().Str("recipient", recipient).Str("subject", subject).Msg("summary email sent")
	return nil
}
