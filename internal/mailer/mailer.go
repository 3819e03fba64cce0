// Package mailer composes and delivers verification emails.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/smtp"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/rs/zerolog"
)

// Compose renders a plain-text RFC 5322 message.
func Compose(from, to, subject, body string, date time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetSubject(subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("mailer: message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("mailer: create writer: %w", err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return nil, fmt.Errorf("mailer: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("mailer: close writer: %w", err)
	}
	return buf.Bytes(), nil
}

// VerificationBody is the text sent with every verification link.
func VerificationBody(link string, ttl time.Duration) string {
	var b strings.Builder
	b.WriteString("Please verify your email to access the budget allocation system.\r\n\r\n")
	b.WriteString("Open the following link to sign in:\r\n\r\n")
	b.WriteString(link)
	b.WriteString("\r\n\r\n")
	fmt.Fprintf(&b, "This link will expire in %d hours and can be used once.\r\n", int(ttl.Hours()))
	return b.String()
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer delivers verification links through an SMTP relay.
type SMTPMailer struct {
	Addr     string
	Username string
	Password string
	From     string
	Subject  string
	TokenTTL time.Duration

	send SendFunc
	now  func() time.Time
}

// NewSMTPMailer creates an SMTPMailer using smtp.SendMail.
func NewSMTPMailer(addr, username, password, from, subject string, ttl time.Duration) *SMTPMailer {
	return &SMTPMailer{
		Addr:     addr,
		Username: username,
		Password: password,
		From:     from,
		Subject:  subject,
		TokenTTL: ttl,
		send:     smtp.SendMail,
		now:      time.Now,
	}
}

// SendVerification emails link to the address.
func (m *SMTPMailer) SendVerification(ctx context.Context, email, link string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := Compose(m.From, email, m.Subject, VerificationBody(link, m.TokenTTL), m.now())
	if err != nil {
		return err
	}
	var auth smtp.Auth
	if m.Username != "" {
		host := m.Addr
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", m.Username, m.Password, host)
	}
	if err := m.send(m.Addr, auth, m.From, []string{email}, msg); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", email, err)
	}
	return nil
}

// LogMailer is the development mailer: the link is logged instead of sent,
// and the verification flow surfaces it to the browser.
type LogMailer struct {
	Logger zerolog.Logger
}

func (m LogMailer) SendVerification(_ context.Context, email, link string) error {
	m.Logger.Info().Str("email", email).Str("link", link).Msg("verification link (development mode, not emailed)")
	return nil
}
