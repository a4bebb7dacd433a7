package mq

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	mqMessagesTotal   metric.Int64Counter
	mqMessageDuration metric.Float64Histogram
	mqPublishErrors   metric.Int64Counter
	mqConsumeErrors   metric.Int64Counter
)

// InitMQMetrics registers broker-level meters, separate from the pipeline
// meters so queue health can be graphed on its own.
func InitMQMetrics(meter metric.Meter) error {
	var err error

	mqMessagesTotal, err = meter.Int64Counter(
		"mq.messages.total",
		metric.WithDescription("Total number of RabbitMQ messages"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return err
	}

	mqMessageDuration, err = meter.Float64Histogram(
		"mq.message.duration",
		metric.WithDescription("RabbitMQ message processing duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	if err != nil {
		return err
	}

	mqPublishErrors, err = meter.Int64Counter(
		"mq.publish.errors",
		metric.WithDescription("Number of RabbitMQ publish errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	mqConsumeErrors, err = meter.Int64Counter(
		"mq.consume.errors",
		metric.WithDescription("Number of RabbitMQ consume errors"),
		metric.WithUnit("{error}"),
	)
	return err
}

// InstrumentedChannel wraps an amqp.Channel with trace propagation and
// broker meters.
type InstrumentedChannel struct {
	ch          *amqp.Channel
	serviceName string
	propagators propagation.TextMapPropagator
	tracer      trace.Tracer
}

func NewInstrumentedChannel(ch *amqp.Channel, serviceName string) *InstrumentedChannel {
	return &InstrumentedChannel{
		ch:          ch,
		serviceName: serviceName,
		propagators: otel.GetTextMapPropagator(),
		tracer:      otel.Tracer(serviceName + ".rabbitmq"),
	}
}

// PublishWithContext publishes with the trace context injected into the
// message headers so the consumer joins the same trace.
func (ic *InstrumentedChannel) PublishWithContext(
	ctx context.Context,
	exchange, routingKey string,
	mandatory, immediate bool,
	msg amqp.Publishing,
) error {
	startTime := time.Now()

	spanName := "rabbitmq.publish"
	if exchange != "" {
		spanName = "rabbitmq.publish." + exchange
	}

	ctx, span := ic.tracer.Start(ctx, spanName, trace.WithAttributes(
		semconv.MessagingSystem("rabbitmq"),
		attribute.String("messaging.destination.name", exchange),
		attribute.String("messaging.rabbitmq.routing_key", routingKey),
		attribute.String("service.name", ic.serviceName),
	))
	defer span.End()

	headers := make(amqp.Table)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	ic.propagators.Inject(ctx, &MessageHeaderCarrier{Headers: headers})
	msg.Headers = headers

	err := ic.ch.PublishWithContext(ctx, exchange, routingKey, mandatory, immediate, msg)
	duration := time.Since(startTime).Seconds()

	status := "success"
	if err != nil {
		status = "error"
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		if mqPublishErrors != nil {
			mqPublishErrors.Add(ctx, 1)
		}
	} else {
		span.SetStatus(codes.Ok, "Message published successfully")
	}

	if mqMessagesTotal != nil {
		labels := metric.WithAttributes(
			semconv.MessagingSystem("rabbitmq"),
			attribute.String("messaging.operation", "publish"),
			attribute.String("messaging.rabbitmq.exchange", exchange),
			attribute.String("messaging.rabbitmq.routing_key", routingKey),
			attribute.String("messaging.status", status),
		)
		mqMessagesTotal.Add(ctx, 1, labels)
		mqMessageDuration.Record(ctx, duration, labels)
	}

	return err
}

// ExtractContext resumes the trace carried in a delivery's headers.
func ExtractContext(ctx context.Context, headers amqp.Table) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, &MessageHeaderCarrier{Headers: headers})
}

// RecordConsumeError bumps the consume error counter.
func RecordConsumeError(ctx context.Context, queue string) {
	if mqConsumeErrors == nil {
		return
	}
	mqConsumeErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("messaging.rabbitmq.queue", queue),
	))
}

// MessageHeaderCarrier adapts amqp.Table to propagation.TextMapCarrier.
type MessageHeaderCarrier struct {
	Headers amqp.Table
}

func (m *MessageHeaderCarrier) Get(key string) string {
	if val, ok := m.Headers[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func (m *MessageHeaderCarrier) Set(key, value string) {
	if m.Headers == nil {
		m.Headers = make(amqp.Table)
	}
	m.Headers[key] = value
}

func (m *MessageHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(m.Headers))
	for k := range m.Headers {
		keys = append(keys, k)
	}
	return keys
}
