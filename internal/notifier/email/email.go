// Package email implements an SMTP-based email notifier
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/newthinker/quantlab/internal/notifier"
)

// Email implements the Notifier interface for SMTP email
type Email struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates a new Email notifier
func New(host string, port int, username, password, from string, to []string) *Email {
	return &Email{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		send:     smtp.SendMail,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Init(cfg notifier.Config) error {
	if host := notifier.StringParam(cfg.Params, "host"); host != "" {
		e.host = host
	}
	e.port = notifier.IntParam(cfg.Params, "port", e.port)
	if username := notifier.StringParam(cfg.Params, "username"); username != "" {
		e.username = username
	}
	if password := notifier.StringParam(cfg.Params, "password"); password != "" {
		e.password = password
	}
	if from := notifier.StringParam(cfg.Params, "from"); from != "" {
		e.from = from
	}
	if to := notifier.StringsParam(cfg.Params, "to"); len(to) > 0 {
		e.to = to
	}

	if e.host == "" || e.from == "" || len(e.to) == 0 {
		return fmt.Errorf("email: host, from, and to are required")
	}
	if e.port == 0 {
		e.port = 587
	}
	if e.send == nil {
		e.send = smtp.SendMail
	}
	return nil
}

// Send mails the report as plain text. net/smtp has no context support,
// so ctx is only checked before dialing.
func (e *Email) Send(ctx context.Context, msg notifier.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject := fmt.Sprintf("QuantLab: %s", msg.Title)
	return e.send(e.addr(), e.auth(), e.from, e.to, e.compose(subject, msg.Text))
}

func (e *Email) addr() string {
	return fmt.Sprintf("%s:%d", e.host, e.port)
}

func (e *Email) auth() smtp.Auth {
	if e.username == "" {
		return nil
	}
	return smtp.PlainAuth("", e.username, e.password, e.host)
}

func (e *Email) compose(subject, body string) []byte {
	msg := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n"+
		"\r\n"+
		"%s",
		e.from,
		strings.Join(e.to, ","),
		subject,
		body,
	)
	return []byte(msg)
}
