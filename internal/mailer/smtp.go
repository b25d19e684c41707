package mailer

import (
	"context"
	"errors"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/TrustyKrab/Englix-Server/config"
)

// SMTPMailer delivers messages directly through an SMTP relay.
type SMTPMailer struct {
	client *mail.Client
}

// NewSMTPMailer constructs an SMTP mailer from config. STARTTLS is required
// and PLAIN auth is used when a username is configured.
func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return nil, errors.New("smtp host is required")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	}
	if strings.TrimSpace(cfg.User) != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, err
	}
	return &SMTPMailer{client: client}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	email, err := buildMsg(msg)
	if err != nil {
		return err
	}
	return m.client.DialAndSendWithContext(ctx, email)
}

func buildMsg(msg Message) (*mail.Msg, error) {
	email := mail.NewMsg()
	if err := email.From(msg.From); err != nil {
		return nil, err
	}
	if err := email.To(msg.To); err != nil {
		return nil, err
	}
	email.Subject(msg.Subject)
	email.SetBodyString(mail.TypeTextPlain, msg.Body)
	return email, nil
}
