// Package mailer sends transactional email over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

// Message is one outgoing email. HTML is required; Text is an optional plain alternative.
type Message struct {
	FromName string
	To       string
	Subject  string
	HTML     string
	Text     string
}

// Sender delivers messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds SMTP settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the envelope address; defaults to Username
	From string
}

// SMTPSender delivers mail through an authenticated SMTP relay with mandatory STARTTLS
type SMTPSender struct {
	cfg Config
	log zerolog.Logger
}

// NewSMTPSender creates an SMTP sender
func NewSMTPSender(cfg Config, log zerolog.Logger) *SMTPSender {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPSender{
		cfg: cfg,
		log: log.With().Str("client", "mailer").Logger(),
	}
}

// Build turns msg into a go-mail message
func (s *SMTPSender) Build(msg Message) (*mail.Msg, error) {
	if strings.TrimSpace(msg.To) == "" {
		return nil, errors.New("recipient is required")
	}

	m := mail.NewMsg()
	if msg.FromName != "" {
		if err := m.FromFormat(msg.FromName, s.cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender: %w", err)
		}
	} else if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)

	if msg.Text != "" {
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	} else {
		m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}

// Send dials the relay and delivers msg
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := s.Build(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}

	s.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("Email sent")
	return nil
}

// LogSender logs messages instead of delivering them. Used when SMTP is not configured.
type LogSender struct {
	log zerolog.Logger
}

// NewLogSender creates a sender that only logs
func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log.With().Str("client", "mailer").Logger()}
}

// Send logs msg and reports success
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("recipient is required")
	}
	s.log.Warn().Str("to", msg.To).Str("subject", msg.Subject).Msg("SMTP not configured, email not sent")
	return nil
}
