package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// AlertIntent is what the engine hands to the external notification
// dispatcher. Delivery, retries, and channel selection happen out there.
type AlertIntent struct {
	IntentID         string    `json:"intent_id"`
	AccountID        string    `json:"account_id"`
	ResourceKind     string    `json:"resource_kind"`
	ThresholdCrossed int       `json:"threshold_crossed"`
	SuggestedMessage string    `json:"suggested_message"`
	FiredAt          time.Time `json:"fired_at"`
}

// Publisher hands alert intents to the external dispatcher.
type Publisher interface {
	PublishAlertIntent(ctx context.Context, intent AlertIntent) error
}

// AMQPPublisher publishes intents to a topic exchange, one routing key per
// resource kind, so dispatchers can bind selectively.
type AMQPPublisher struct {
	channel  *amqp.Channel
	conn     *amqp.Connection
	exchange string
}

func NewAMQPPublisher(amqpURL, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel failed: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("exchange declare failed: %w", err)
	}
	log.Info().Str("exchange", exchange).Msg("alert publisher connected to broker")
	return &AMQPPublisher{channel: ch, conn: conn, exchange: exchange}, nil
}

func (p *AMQPPublisher) PublishAlertIntent(ctx context.Context, intent AlertIntent) error {
	body, err := json.Marshal(intent)
	if err != nil {
		return err
	}
	routingKey := "alerts." + intent.ResourceKind
	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   intent.IntentID,
		Timestamp:   intent.FiredAt,
		Body:        body,
	})
}

func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}

// LogPublisher is the fallback when no broker is configured: the intent is
// only logged. Used in development and in tests.
type LogPublisher struct{}

func (LogPublisher) PublishAlertIntent(_ context.Context, intent AlertIntent) error {
	log.Info().
		Str("account_id", intent.AccountID).
		Str("resource_kind", intent.ResourceKind).
		Int("threshold", intent.ThresholdCrossed).
		Str("message", intent.SuggestedMessage).
		Msg("alert intent (no broker configured)")
	return nil
}
