package mail

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/fintrack/fintrack/internal/config"
	log "github.com/sirupsen/logrus"
)

// Message is a single outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers messages to users. Delivery failures are reported to the
// caller but are never a reason to fail the operation that triggered them.
type Mailer interface {
	Send(msg Message) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	cfg config.Mail
}

func NewSMTPMailer(cfg config.Mail) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(msg Message) error {
	if !m.cfg.Enabled {
		log.Debugf("Mail disabled, dropping message to %s: %s", msg.To, msg.Subject)
		return nil
	}

	from := m.cfg.From
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.From)
	}

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	log.Debugf("Sent email to %s: %s", msg.To, msg.Subject)
	return nil
}

// NoopMailer is used in tests and when no SMTP relay is configured.
type NoopMailer struct {
	Sent []Message
}

func (m *NoopMailer) Send(msg Message) error {
	m.Sent = append(m.Sent, msg)
	return nil
}
