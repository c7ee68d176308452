package sink

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/securityopsai/logwatcher/internal/config"
)

// EmailSender delivers a message over SMTP, authenticating with
// PLAIN auth when credentials are configured. There is no ecosystem
// SMTP client in the retrieved corpus for this concern, so this uses
// net/smtp directly.
type EmailSender struct {
	cfg config.EmailConfig
}

// NewEmailSender creates an EmailSender from cfg.
func NewEmailSender(cfg config.EmailConfig) *EmailSender {
	return &EmailSender{cfg: cfg}
}

func (e *EmailSender) Name() string { return "email" }

// Check dials the configured SMTP server to confirm it is reachable,
// without sending a message. Satisfies health.Checker.
func (e *EmailSender) Check(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", e.cfg.SMTPServer, e.cfg.SMTPPort)
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (e *EmailSender) Send(ctx context.Context, message string) error {
	addr := fmt.Sprintf("%s:%d", e.cfg.SMTPServer, e.cfg.SMTPPort)

	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.SMTPServer)
	}

	from := e.cfg.Username
	if from == "" {
		from = "logwatcher@localhost"
	}

	subject := "LogWatcher Alert"
	body := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nDate: %s\r\n\r\n%s\r\n",
		from, strings.Join(e.cfg.ToAddress, ", "), subject, time.Now().Format(time.RFC1123Z), message,
	)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, from, e.cfg.ToAddress, []byte(body))
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
