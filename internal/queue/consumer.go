package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"Mazraaty/internal/cache"
	"Mazraaty/internal/model"
	"Mazraaty/pkg/errors"
	"Mazraaty/pkg/logger"
	"Mazraaty/storage/mq"
)

// ResolveHandler expands a notification target; implemented by the resolver
// service and injected at worker startup.
type ResolveHandler interface {
	Resolve(ctx context.Context, task model.ResolveTask) error
}

// DeliveryProcessor executes one delivery leg; implemented by the dispatch
// pool and injected at worker startup.
type DeliveryProcessor interface {
	Process(ctx context.Context, task model.DeliveryTask) error
}

var (
	resolveHandler    ResolveHandler
	deliveryProcessor DeliveryProcessor
)

func SetResolveHandler(h ResolveHandler) {
	resolveHandler = h
}

func SetDeliveryProcessor(p DeliveryProcessor) {
	deliveryProcessor = p
}

// StartResolveConsumer consumes the resolve queue until ctx is cancelled.
func StartResolveConsumer(ctx context.Context) error {
	if resolveHandler == nil {
		return fmt.Errorf("resolve handler is not set")
	}

	handler := func(ctx context.Context, body []byte) error {
		var task model.ResolveTask
		if err := json.Unmarshal(body, &task); err != nil {
			return &errors.SkipMessageError{Reason: fmt.Sprintf("malformed resolve task: %v", err)}
		}

		claimed, err := cache.TryMarkMessageProcessing(ctx, task.MessageID, 24*time.Hour)
		if err != nil {
			logger.Logger.Warn("Failed to check message processed status",
				zap.String("message_id", task.MessageID),
				zap.Error(err),
			)
			// redis down must not stall the pipeline; risk a duplicate instead
		} else if !claimed {
			return &errors.SkipMessageError{Reason: fmt.Sprintf("message %s already processed", task.MessageID)}
		}

		if err := resolveHandler.Resolve(ctx, task); err != nil {
			if !errors.IsSkipMessageError(err) {
				if unmarkErr := cache.UnmarkMessageProcessing(ctx, task.MessageID); unmarkErr != nil {
					logger.Logger.Warn("Failed to unmark message",
						zap.String("message_id", task.MessageID),
						zap.Error(unmarkErr),
					)
				}
			}
			return err
		}

		if err := cache.MarkMessageProcessed(ctx, task.MessageID, 24*time.Hour); err != nil {
			logger.Logger.Warn("Failed to mark message processed",
				zap.String("message_id", task.MessageID),
				zap.Error(err),
			)
		}
		return nil
	}

	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         mq.ResolveQueue,
		ConsumerTag:   "notify-resolver",
		PrefetchCount: 8,
		Handler:       handler,
	})
}

// StartDeliveryConsumer consumes one priority's delivery queue. Prefetch
// bounds how many legs this process holds unacked; the dispatch pool orders
// them across priorities and tenants.
func StartDeliveryConsumer(ctx context.Context, priority model.Priority) error {
	if deliveryProcessor == nil {
		return fmt.Errorf("delivery processor is not set")
	}

	handler := func(ctx context.Context, body []byte) error {
		var task model.DeliveryTask
		if err := json.Unmarshal(body, &task); err != nil {
			return &errors.SkipMessageError{Reason: fmt.Sprintf("malformed delivery task: %v", err)}
		}

		return deliveryProcessor.Process(ctx, task)
	}

	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         mq.DeliveryQueue(priority),
		ConsumerTag:   "notify-delivery-" + string(priority),
		PrefetchCount: prefetchFor(priority),
		Handler:       handler,
	})
}

// prefetchFor gives higher priorities more unacked headroom so a burst of
// low-priority traffic cannot monopolize the pool's intake.
func prefetchFor(p model.Priority) int {
	switch p {
	case model.PriorityCritical:
		return 64
	case model.PriorityHigh:
		return 32
	case model.PriorityNormal:
		return 16
	default:
		return 8
	}
}
