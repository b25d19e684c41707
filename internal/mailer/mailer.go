// Package mailer delivers transactional email such as password-reset links.
package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/TrustyKrab/Englix-Server/config"
	"github.com/TrustyKrab/Englix-Server/internal/mq"
)

// Message is a plain-text email.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Mailer sends a message. Send blocks until the message is handed off.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New builds the mailer selected by cfg.Mail.Backend.
// The returned close function releases any broker connection.
func New(ctx context.Context, cfg config.Config) (Mailer, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(cfg.Mail.Backend) {
	case config.MailSMTP:
		m, err := NewSMTPMailer(cfg.Mail)
		if err != nil {
			return nil, nil, err
		}
		return m, noop, nil
	case config.MailRabbitMQ, config.MailPubSub:
		backend, err := mq.NewBackend(ctx, cfg.Mail.Backend, cfg)
		if err != nil {
			return nil, nil, err
		}
		queue := mq.New(backend)
		return NewQueueMailer(queue, cfg.Mail.Queue), queue.Close, nil
	case config.MailLog:
		return NewLogMailer(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unsupported mail backend %q", cfg.Mail.Backend)
	}
}
