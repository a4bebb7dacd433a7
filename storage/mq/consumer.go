package mq

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"Mazraaty/pkg/errors"
	"Mazraaty/pkg/logger"
	obsmq "Mazraaty/pkg/mq"
)

type MessageHandler func(ctx context.Context, body []byte) error

type ConsumeOptions struct {
	Queue         string
	ConsumerTag   string
	PrefetchCount int
	Handler       MessageHandler
}

// Consume blocks on the queue until ctx is cancelled or the channel dies.
// A handler error nacks with requeue; a SkipMessageError acks and drops.
func Consume(ctx context.Context, opts ConsumeOptions) error {
	if conn == nil {
		return fmt.Errorf("RabbitMQ connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if opts.PrefetchCount > 0 {
		if err := ch.Qos(opts.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	msgs, err := ch.Consume(
		opts.Queue,
		opts.ConsumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logger.Logger.Info("Started consuming messages",
		zap.String("queue", opts.Queue),
		zap.String("consumer_tag", opts.ConsumerTag),
		zap.Int("prefetch_count", opts.PrefetchCount),
	)

	for {
		select {
		case <-ctx.Done():
			logger.Logger.Info("Consumer stopping",
				zap.String("queue", opts.Queue),
				zap.String("consumer_tag", opts.ConsumerTag),
			)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("consumer channel closed for queue %s", opts.Queue)
			}

			// resume the publisher's trace from the message headers
			msgCtx := obsmq.ExtractContext(ctx, msg.Headers)

			if err := opts.Handler(msgCtx, msg.Body); err != nil {
				if errors.IsSkipMessageError(err) {
					logger.Logger.Warn("Skipping message",
						zap.String("queue", opts.Queue),
						zap.Error(err),
					)
					_ = msg.Ack(false)
					continue
				}

				obsmq.RecordConsumeError(msgCtx, opts.Queue)
				logger.Logger.Error("Failed to process message",
					zap.String("queue", opts.Queue),
					zap.String("consumer_tag", opts.ConsumerTag),
					zap.Error(err),
				)
				_ = msg.Nack(false, true)
				continue
			}

			_ = msg.Ack(false)
		}
	}
}
