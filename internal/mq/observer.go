package mq

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/Treework/internal/graph"
)

// EventPublisher — наблюдатель узлов, публикующий события в RabbitMQ.
// Реализует graph.Observer.
//
// Публикация выполняется асинхронно и best-effort: недоступный брокер
// не задерживает fan-out на детей и не влияет на исход узла.
type EventPublisher struct {
	publisher *Publisher
	logger    *slog.Logger
	timeout   time.Duration
}

// NewEventPublisher создаёт нового наблюдателя поверх Publisher.
func NewEventPublisher(publisher *Publisher, logger *slog.Logger) *EventPublisher {
	return &EventPublisher{
		publisher: publisher,
		logger:    logger,
		timeout:   5 * time.Second,
	}
}

// NodeStarted реализует graph.Observer.
func (e *EventPublisher) NodeStarted(info graph.RunInfo) {
	payload := NodeStartedPayload{
		NodeID:     info.NodeID,
		NodeName:   info.NodeName,
		Generation: info.Generation,
		StartedAt:  info.StartedAt,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()

		if err := e.publisher.PublishNodeStarted(ctx, payload); err != nil {
			e.logger.Warn("failed to publish node.started",
				"node", info.NodeName,
				"error", err,
			)
		}
	}()
}

// NodeFinished реализует graph.Observer.
func (e *EventPublisher) NodeFinished(info graph.RunInfo) {
	payload := NodeFinishedPayload{
		NodeID:     info.NodeID,
		NodeName:   info.NodeName,
		Generation: info.Generation,
		State:      string(info.State),
		Error:      info.Error,
		DurationMs: info.Duration().Milliseconds(),
		FinishedAt: info.FinishedAt,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()

		if err := e.publisher.PublishNodeFinished(ctx, payload); err != nil {
			e.logger.Warn("failed to publish node.finished",
				"node", info.NodeName,
				"error", err,
			)
		}
	}()
}
