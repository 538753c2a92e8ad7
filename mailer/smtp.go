package mailer

import (
	"context"

	"gopkg.in/gomail.v2"

	"storefront-backend/config"
)

type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender relays through an SMTP provider (Mailgun SMTP in production).
type SMTPSender struct {
	dialer *gomail.Dialer
}

func NewSMTPSender(cfg config.Mail) *SMTPSender {
	return &SMTPSender{dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	// gomail has no context support; abandon the send when ctx ends.
	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
