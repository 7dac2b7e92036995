// Package mail delivers password reset messages.
package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

type Mailer interface {
	SendResetEmail(ctx context.Context, email string, token string) error
}

// ResetLink appends token as the "token" query parameter of base.
func ResetLink(base string, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid reset url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// sendMail is a seam for testing smtp.SendMail.
var sendMail = smtp.SendMail

type SMTPMailer struct {
	cfg      SMTPConfig
	resetURL string
}

func NewSMTPMailer(cfg SMTPConfig, resetURL string) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, resetURL: resetURL}
}

// SendResetEmail does not honour ctx cancellation once the SMTP dialogue has
// started; net/smtp has no context support.
func (m *SMTPMailer) SendResetEmail(ctx context.Context, email string, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	link, err := ResetLink(m.resetURL, token)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := sendMail(addr, auth, m.cfg.From, []string{email}, buildResetMessage(m.cfg.From, email, link)); err != nil {
		return fmt.Errorf("smtp error: %w", err)
	}
	return nil
}

func buildResetMessage(from, to, link string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: Reset your password\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString("Somebody asked to reset the password of your account.\r\n")
	b.WriteString("Follow the link below to choose a new one:\r\n\r\n")
	b.WriteString(link + "\r\n\r\n")
	b.WriteString("If it was not you, ignore this message.\r\n")
	return []byte(b.String())
}

// LogMailer writes the reset link to the log instead of sending it.
type LogMailer struct {
	logger   logging.Logger
	resetURL string
}

func NewLogMailer(logger logging.Logger, resetURL string) *LogMailer {
	return &LogMailer{logger: logger, resetURL: resetURL}
}

func (m *LogMailer) SendResetEmail(ctx context.Context, email string, token string) error {
	link, err := ResetLink(m.resetURL, token)
	if err != nil {
		return err
	}
	m.logger.Info(ctx, "password reset requested", "email", email, "link", link)
	return nil
}
