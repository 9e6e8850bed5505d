// Package mailer sends transactional email via SMTP.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
)

// Config holds the configuration for creating a Mailer.
type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	FromName string
}

// Mailer sends emails via SMTP.
type Mailer struct {
	host     string
	port     int
	user     string
	pass     string
	from     string
	fromName string
	log      zerolog.Logger
}

// New creates a new Mailer with the given configuration.
func New(cfg Config, log zerolog.Logger) *Mailer {
	return &Mailer{
		host:     cfg.Host,
		port:     cfg.Port,
		user:     cfg.User,
		pass:     cfg.Pass,
		from:     cfg.From,
		fromName: cfg.FromName,
		log:      log.With().Str("component", "mailer").Logger(),
	}
}

// Email represents an email to be sent.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Sender is the narrow interface the auth flow depends on.
type Sender interface {
	Send(email Email) error
}

// Send sends a plain-text email.
func (m *Mailer) Send(email Email) error {
	from := m.from
	if m.fromName != "" {
		from = fmt.Sprintf("%s <%s>", m.fromName, m.from)
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", email.To))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", email.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(email.Body)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	var auth smtp.Auth
	if m.user != "" && m.pass != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}

	if err := smtp.SendMail(addr, auth, m.from, []string{email.To}, []byte(msg.String())); err != nil {
		m.log.Error().
			Str("to", email.To).
			Str("subject", email.Subject).
			Err(err).
			Msg("failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.log.Info().
		Str("to", email.To).
		Str("subject", email.Subject).
		Msg("email sent")

	return nil
}

var _ Sender = (*Mailer)(nil)
