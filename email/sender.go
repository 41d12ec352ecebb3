// Package email provides email delivery backends for verification codes.
package email

import (
	"context"
	"fmt"
	stdlog "log"
	"net/smtp"
	"strings"

	"github.com/servxpert/authcore/core"
)

// SMTPSender delivers mail over plain SMTP with optional AUTH.
type SMTPSender struct {
	Addr     string // host:port
	From     string
	Username string
	Password string
}

func NewSMTPSender(addr, from, username, password string) *SMTPSender {
	return &SMTPSender{Addr: addr, From: from, Username: username, Password: password}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	_ = ctx
	if s.Addr == "" || s.From == "" {
		return fmt.Errorf("%w: smtp address or sender missing", core.ErrProviderConfig)
	}
	var auth smtp.Auth
	if s.Username != "" {
		host := s.Addr
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", s.Username, s.Password, host)
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		s.From, to, subject, body)
	if err := smtp.SendMail(s.Addr, auth, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("%w: %v", core.ErrProviderUnavailable, err)
	}
	return nil
}

// DevLogSender writes the message to the process log instead of sending it.
// For local development only.
type DevLogSender struct{}

func (DevLogSender) Send(ctx context.Context, to, subject, body string) error {
	_ = ctx
	stdlog.Printf("[authcore/dev-email] to=%s subject=%q body=%q", to, subject, body)
	return nil
}
