package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"Mazraaty/internal/model"
)

const (
	// DeliveryExchange carries per-attempt delivery tasks, routed by priority.
	DeliveryExchange = "notify.delivery"
	// DelayedExchange re-feeds retried tasks after their backoff via the
	// x-delayed-message plugin.
	DelayedExchange = "notify.scheduler.delayed"

	ResolveQueue      = "notify.resolve"
	ResolveRoutingKey = "resolve"
)

// DeliveryQueue returns the queue name for a priority class. Each class has
// its own queue so the dispatcher can drain strictly by priority.
func DeliveryQueue(p model.Priority) string {
	return "notify.delivery." + string(p)
}

// DeliveryRoutingKey doubles as the binding key on the delayed exchange so a
// retried task lands back on the same priority queue.
func DeliveryRoutingKey(p model.Priority) string {
	return "delivery." + string(p)
}

func declareTopology(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open topology channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		DeliveryExchange,
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare delivery exchange: %w", err)
	}

	if err := ch.ExchangeDeclare(
		DelayedExchange,
		"x-delayed-message",
		true,
		false,
		false,
		false,
		amqp.Table{"x-delayed-type": "direct"},
	); err != nil {
		return fmt.Errorf("failed to declare delayed exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(ResolveQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare resolve queue: %w", err)
	}
	if err := ch.QueueBind(ResolveQueue, ResolveRoutingKey, DeliveryExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind resolve queue: %w", err)
	}

	for _, p := range model.PrioritiesDescending {
		queue := DeliveryQueue(p)
		key := DeliveryRoutingKey(p)

		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
		if err := ch.QueueBind(queue, key, DeliveryExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", queue, err)
		}
		if err := ch.QueueBind(queue, key, DelayedExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s to delayed exchange: %w", queue, err)
		}
	}

	return nil
}
