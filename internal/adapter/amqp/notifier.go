package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"donation-settlement-engine/internal/core/ports"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// publishChannel is the slice of *amqp091.Channel the notifier uses, declared
// so tests can substitute a fake.
type publishChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Notifier implements ports.Notifier over a durable topic exchange. Events
// are routed by their kind; delivery is fire-and-forget and a broker outage
// never fails the settlement that triggered the event.
type Notifier struct {
	conn     *amqp091.Connection
	channel  publishChannel
	exchange string
	log      zerolog.Logger
}

// NewNotifier connects to the broker and declares the exchange.
func NewNotifier(amqpURL, exchange string, log zerolog.Logger) (*Notifier, error) {
	conn, err := amqp091.DialConfig(amqpURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dialing broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}

	log.Info().Str("exchange", exchange).Msg("notification broker connected")
	return &Notifier{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		log:      log,
	}, nil
}

// Publish sends one event, routed by its kind.
func (n *Notifier) Publish(ctx context.Context, event ports.NotificationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = n.channel.PublishWithContext(ctx,
		n.exchange,
		event.Kind,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Kind, err)
	}

	n.log.Debug().Str("kind", event.Kind).Str("user_id", event.UserID.String()).Msg("event published")
	return nil
}

// Close releases the channel and connection.
func (n *Notifier) Close() {
	if ch, ok := n.channel.(*amqp091.Channel); ok && ch != nil {
		ch.Close()
	}
	if n.conn != nil {
		n.conn.Close()
	}
}
