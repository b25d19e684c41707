package mq

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/TrustyKrab/Englix-Server/config"
)

const (
	defaultAckDeadline    = 60 * time.Second
	defaultMaxOutstanding = 10
	minRetryBackoff       = 10 * time.Second
	maxRetryBackoff       = 10 * time.Minute

	// AttrDeliveryAttempt is set on received messages when the subscription
	// tracks delivery attempts.
	AttrDeliveryAttempt = "delivery-attempt"
)

// PubSubClient wraps the Google Cloud Pub/Sub SDK client.
type PubSubClient struct {
	client             *pubsub.Client
	subscriptionSuffix string
	ackDeadline        time.Duration
	maxOutstanding     int
}

// NewPubSubClient constructs a Pub/Sub client from config.
func NewPubSubClient(ctx context.Context, cfg config.PubSubConfig) (*PubSubClient, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub project id is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, err
	}

	return newPubSubClient(client, cfg), nil
}

func newPubSubClient(client *pubsub.Client, cfg config.PubSubConfig) *PubSubClient {
	suffix := cfg.SubscriptionSuffix
	if suffix == "" {
		suffix = "-sub"
	}
	ackDeadline := cfg.AckDeadline
	if ackDeadline <= 0 {
		ackDeadline = defaultAckDeadline
	}
	maxOutstanding := cfg.MaxOutstanding
	if maxOutstanding <= 0 {
		maxOutstanding = defaultMaxOutstanding
	}
	return &PubSubClient{
		client:             client,
		subscriptionSuffix: suffix,
		ackDeadline:        ackDeadline,
		maxOutstanding:     maxOutstanding,
	}
}

// Publish sends a message to the named topic. Pub/Sub has no content-type
// property, so the media type always travels as an attribute.
func (p *PubSubClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("pubsub channel is required")
	}

	topic, err := p.ensureTopic(ctx, channel)
	if err != nil {
		return "", err
	}
	result := topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: publishAttributes(attrs)})
	return result.Get(ctx)
}

// Subscribe consumes messages from the named channel. At most maxOutstanding
// messages are in flight, so a slow SMTP relay does not pile up leases.
func (p *PubSubClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("pubsub channel is required")
	}

	topic, err := p.ensureTopic(ctx, channel)
	if err != nil {
		return err
	}

	sub, err := p.ensureSubscription(ctx, p.subscriptionName(channel), topic)
	if err != nil {
		return err
	}
	sub.ReceiveSettings.MaxOutstandingMessages = p.maxOutstanding

	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		settle(ctx, handler, toMessage(msg), msg)
	})
}

// Close closes the underlying Pub/Sub client.
func (p *PubSubClient) Close() error {
	return p.client.Close()
}

func (p *PubSubClient) ensureTopic(ctx context.Context, name string) (*pubsub.Topic, error) {
	topic := p.client.Topic(name)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return p.client.CreateTopic(ctx, name)
	}
	return topic, nil
}

func (p *PubSubClient) ensureSubscription(ctx context.Context, name string, topic *pubsub.Topic) (*pubsub.Subscription, error) {
	sub := p.client.Subscription(name)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return p.client.CreateSubscription(ctx, name, p.subscriptionConfig(topic))
	}
	return sub, nil
}

// subscriptionConfig leaves room for one SMTP round trip per lease and backs
// off between redeliveries of a nacked message.
func (p *PubSubClient) subscriptionConfig(topic *pubsub.Topic) pubsub.SubscriptionConfig {
	return pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: p.ackDeadline,
		RetryPolicy: &pubsub.RetryPolicy{
			MinimumBackoff: minRetryBackoff,
			MaximumBackoff: maxRetryBackoff,
		},
	}
}

func (p *PubSubClient) subscriptionName(channel string) string {
	if p.subscriptionSuffix == "" {
		return channel
	}
	return channel + p.subscriptionSuffix
}

func publishAttributes(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs)+1)
	for key, value := range attrs {
		out[key] = value
	}
	if out[AttrContentType] == "" {
		out[AttrContentType] = "application/octet-stream"
	}
	return out
}

func toMessage(msg *pubsub.Message) Message {
	attrs := make(map[string]string, len(msg.Attributes)+1)
	for key, value := range msg.Attributes {
		attrs[key] = value
	}
	if msg.DeliveryAttempt != nil {
		attrs[AttrDeliveryAttempt] = strconv.Itoa(*msg.DeliveryAttempt)
	}
	return Message{
		ID:         msg.ID,
		Data:       msg.Data,
		Attributes: attrs,
	}
}

type acknowledger interface {
	Ack()
	Nack()
}

// settle acks a handled message and nacks a failed one for redelivery.
func settle(ctx context.Context, handler Handler, msg Message, ack acknowledger) {
	if err := handler(ctx, msg); err != nil {
		ack.Nack()
		return
	}
	ack.Ack()
}
