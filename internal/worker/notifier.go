package worker

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"

	"github.com/jordan-wright/email"
)

// Notifier delivers a digest.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// EmailNotifier sends digests over SMTP.
type EmailNotifier struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	send func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewEmailNotifier authenticates with PLAIN auth when a username is set.
func NewEmailNotifier(host string, port int, username, password, from string, to []string) *EmailNotifier {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &EmailNotifier{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		auth: auth,
		from: from,
		to:   append([]string{}, to...),
		send: func(e *email.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
	}
}

func (n *EmailNotifier) Notify(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := email.NewEmail()
	e.From = n.from
	e.To = n.to
	e.Subject = subject
	e.Text = []byte(body)

	if err := n.send(e, n.addr, n.auth); err != nil {
		return fmt.Errorf("send digest email: %w", err)
	}
	slog.InfoContext(ctx, "Digest email sent", "to", n.to, "subject", subject)
	return nil
}

// LogNotifier writes the digest to the log; used when SMTP is not set up.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, subject, body string) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "Digest", "subject", subject, "body", body)
	return nil
}
