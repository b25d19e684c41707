package mailer

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/TrustyKrab/Englix-Server/internal/mq"
)

// Worker consumes queued messages and hands them to a delivering Mailer.
type Worker struct {
	queue    *mq.MQ
	channel  string
	delivery Mailer
}

func NewWorker(queue *mq.MQ, channel string, delivery Mailer) *Worker {
	return &Worker{queue: queue, channel: channel, delivery: delivery}
}

// Run blocks until ctx is cancelled or the subscription fails.
func (w *Worker) Run(ctx context.Context) error {
	log.Info().Str("channel", w.channel).Msg("mail worker started")
	return w.queue.Subscribe(ctx, w.channel, w.Handle)
}

// Handle delivers one queued message. Undecodable payloads are dropped so they
// are not redelivered forever; delivery failures are returned for a nack.
func (w *Worker) Handle(ctx context.Context, m mq.Message) error {
	var msg Message
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		log.Error().Err(err).Str("message_id", m.ID).Msg("dropping undecodable mail message")
		return nil
	}

	if err := w.delivery.Send(ctx, msg); err != nil {
		log.Error().Err(err).Str("message_id", m.ID).Str("to", msg.To).Msg("mail delivery failed")
		return err
	}

	log.Info().Str("message_id", m.ID).Str("to", msg.To).Msg("mail delivered")
	return nil
}
