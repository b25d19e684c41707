package mailer

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogMailer writes messages to the log instead of sending them. Development only.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("mail not sent, log backend active")
	// The body can carry a reset link, which is a live credential.
	log.Debug().
		Str("to", msg.To).
		Str("body", msg.Body).
		Msg("Unsent mail body")
	return nil
}
