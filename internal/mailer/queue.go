package mailer

import (
	"context"
	"errors"
	"strings"

	"github.com/TrustyKrab/Englix-Server/internal/mq"
)

const attrKind = "kind"

// KindEmail tags queued messages produced by QueueMailer.
const KindEmail = "email"

// QueueMailer publishes messages to a broker; a Worker performs delivery.
// Send succeeds once the broker accepted the message.
type QueueMailer struct {
	queue   *mq.MQ
	channel string
}

func NewQueueMailer(queue *mq.MQ, channel string) *QueueMailer {
	return &QueueMailer{queue: queue, channel: channel}
}

func (m *QueueMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("mail recipient is required")
	}
	_, err := m.queue.PublishJSON(ctx, m.channel, msg, map[string]string{attrKind: KindEmail})
	return err
}
