package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeNodes Exchange = "treework.nodes"
)

// Queues — имена очередей.
const (
	QueueNodesStarted  Queue = "nodes.started"
	QueueNodesFinished Queue = "nodes.finished"
)

// Routing keys.
const (
	RoutingKeyStarted  RoutingKey = "started"
	RoutingKeyFinished RoutingKey = "finished"
)

// SetupTopology объявляет топологию на текущем канале соединения.
// Идемпотентна: повторный вызов на уже объявленной топологии безопасен.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, DeclareTopology)
}

// DeclareTopology объявляет обменник, очереди и привязки на канале.
// Передаётся в ConnConfig.OnReconnect: после каждого переподключения
// топология объявляется заново до первой публикации.
func DeclareTopology(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		string(ExchangeNodes), // name
		"direct",              // type
		true,                  // durable
		false,                 // auto-deleted
		false,                 // internal
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", ExchangeNodes, err)
	}

	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
	}{
		{QueueNodesStarted, RoutingKeyStarted},
		{QueueNodesFinished, RoutingKeyFinished},
	}

	for _, b := range bindings {
		if _, err := ch.QueueDeclare(
			string(b.queue), // name
			true,            // durable
			false,           // delete when unused
			false,           // exclusive
			false,           // no-wait
			nil,             // arguments
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", b.queue, err)
		}

		if err := ch.QueueBind(
			string(b.queue),       // queue name
			string(b.routingKey),  // routing key
			string(ExchangeNodes), // exchange
			false,                 // no-wait
			nil,                   // arguments
		); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, ExchangeNodes, err)
		}
	}

	return nil
}
