package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeNodeStarted  MessageType = "node.started"
	MessageTypeNodeFinished MessageType = "node.finished"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// NodeStartedPayload — payload для события запуска узла.
type NodeStartedPayload struct {
	NodeID     uuid.UUID `json:"node_id"`
	NodeName   string    `json:"node_name"`
	Generation uint64    `json:"generation"`
	StartedAt  time.Time `json:"started_at"`
}

// NodeFinishedPayload — payload для события финализации узла.
type NodeFinishedPayload struct {
	NodeID     uuid.UUID `json:"node_id"`
	NodeName   string    `json:"node_name"`
	Generation uint64    `json:"generation"`
	State      string    `json:"state"` // COMPLETED или FAILED
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	FinishedAt time.Time `json:"finished_at"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishNodeStarted публикует событие о запуске узла.
func (p *Publisher) PublishNodeStarted(ctx context.Context, payload NodeStartedPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeNodeStarted,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeNodes, RoutingKeyStarted, msg)
}

// PublishNodeFinished публикует событие о финализации узла.
func (p *Publisher) PublishNodeFinished(ctx context.Context, payload NodeFinishedPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeNodeFinished,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeNodes, RoutingKeyFinished, msg)
}
