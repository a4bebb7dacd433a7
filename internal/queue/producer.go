package queue

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"Mazraaty/internal/model"
	"Mazraaty/pkg/logger"
	"Mazraaty/pkg/snowflake"
	"Mazraaty/storage/mq"
)

// PublishResolveTask hands an admitted notification to the resolver worker.
func PublishResolveTask(ctx context.Context, task model.ResolveTask) error {
	if task.MessageID == "" {
		id, err := snowflake.NextID()
		if err != nil {
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		task.MessageID = fmt.Sprintf("resolve_%d", id)
	}

	if err := mq.PublishMessage(ctx, mq.DeliveryExchange, mq.ResolveRoutingKey, task); err != nil {
		logger.EventError(ctx, "resolve_publish_failed", err,
			zap.Int64("notification_id", task.NotificationID),
		)
		return err
	}

	logger.Event(ctx, "resolve_task_published",
		zap.String("message_id", task.MessageID),
		zap.Int64("notification_id", task.NotificationID),
	)
	return nil
}

// PublishDeliveryTask routes one delivery leg onto its priority queue.
func PublishDeliveryTask(ctx context.Context, task model.DeliveryTask) error {
	if task.MessageID == "" {
		id, err := snowflake.NextID()
		if err != nil {
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		task.MessageID = fmt.Sprintf("delivery_%d", id)
	}

	if err := mq.PublishMessage(ctx, mq.DeliveryExchange, mq.DeliveryRoutingKey(task.Priority), task); err != nil {
		logger.EventError(ctx, "delivery_publish_failed", err,
			zap.Int64("notification_id", task.NotificationID),
			zap.Int64("recipient_id", task.RecipientID),
			zap.String("channel", string(task.Channel)),
		)
		return err
	}

	return nil
}
