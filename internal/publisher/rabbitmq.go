// Package publisher announces received captures on a RabbitMQ topic exchange.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"proctor-camera/internal/dto"
)

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
}

type Publisher struct {
	config Config
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// Connect dials RabbitMQ and declares the durable topic exchange
func Connect(cfg Config) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	log.Printf("RabbitMQ initialized: exchange=%s, routing_key=%s", cfg.Exchange, cfg.RoutingKey)
	return &Publisher{config: cfg, conn: conn, ch: ch}, nil
}

// PublishCapture emits a capture.received event
func (p *Publisher) PublishCapture(ctx context.Context, event dto.CaptureEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal capture event: %w", err)
	}

	err = p.ch.PublishWithContext(
		ctx,
		p.config.Exchange,   // exchange
		p.config.RoutingKey, // routing key
		false,               // mandatory
		false,               // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			MessageId:    event.CaptureID,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish capture event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
