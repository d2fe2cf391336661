// Copyright (c) 2026 Hemeroteca. All rights reserved.

// Package mail provides plain-text email dispatch over SMTP.
//
// It carries the account verification links sent when an administrator
// creates a new user. Delivery is best-effort; a failed send is logged and
// surfaced to the caller, never retried here.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Sender dispatches a plain-text message to a single recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Mailer sends mail through a configured SMTP relay.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	logger   *slog.Logger
}

// NewMailer builds a Mailer for the given SMTP relay.
//
// # Parameters
//   - host, port: SMTP relay address.
//   - username, password: PLAIN auth credentials; empty username disables auth.
//   - logger: Structured logger for dispatch events.
func NewMailer(host string, port int, username, password string, logger *slog.Logger) *Mailer {
	return &Mailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     username,
		logger:   logger,
	}
}

// Send delivers a plain-text message to a single recipient.
//
// The context is honored up to the point of dial; net/smtp has no native
// context support, so cancellation after dial is best-effort.
func (mailer *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mail_send_cancelled: %w", err)
	}

	address := fmt.Sprintf("%s:%d", mailer.host, mailer.port)

	var auth smtp.Auth
	if mailer.username != "" {
		auth = smtp.PlainAuth("", mailer.username, mailer.password, mailer.host)
	}

	message := buildMessage(mailer.from, to, subject, body)

	if err := smtp.SendMail(address, auth, mailer.from, []string{to}, message); err != nil {
		mailer.logger.Error("mail_send_failed",
			slog.String("to", to),
			slog.String("subject", subject),
			slog.Any("error", err),
		)
		return fmt.Errorf("mail_send_failed: %w", err)
	}

	mailer.logger.Info("mail_sent",
		slog.String("to", to),
		slog.String("subject", subject),
	)

	return nil
}

// buildMessage assembles a minimal RFC 5322 plain-text message.
func buildMessage(from, to, subject, body string) []byte {
	var builder strings.Builder

	builder.WriteString("From: " + from + "\r\n")
	builder.WriteString("To: " + to + "\r\n")
	builder.WriteString("Subject: " + subject + "\r\n")
	builder.WriteString("MIME-Version: 1.0\r\n")
	builder.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	builder.WriteString("\r\n")
	builder.WriteString(body)
	builder.WriteString("\r\n")

	return []byte(builder.String())
}
