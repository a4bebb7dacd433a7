package mq

import (
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestMessageHeaderCarrier(t *testing.T) {
	carrier := &MessageHeaderCarrier{}

	carrier.Set("traceparent", "00-abc-def-01")
	assert.Equal(t, "00-abc-def-01", carrier.Get("traceparent"))
	assert.Equal(t, []string{"traceparent"}, carrier.Keys())

	// non-string header values read as absent, not as a panic
	carrier.Headers["x-delay"] = int64(5000)
	assert.Equal(t, "", carrier.Get("x-delay"))
	assert.Equal(t, "", carrier.Get("missing"))
}

func TestTraceContextSurvivesMessageHeaders(t *testing.T) {
	propagator := propagation.TraceContext{}

	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10},
		SpanID:     trace.SpanID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		TraceFlags: trace.FlagsSampled,
	})
	require.True(t, spanCtx.IsValid())

	// publisher side: inject into the headers the broker carries
	headers := make(amqp.Table)
	publishCtx := trace.ContextWithSpanContext(context.Background(), spanCtx)
	propagator.Inject(publishCtx, &MessageHeaderCarrier{Headers: headers})
	require.Contains(t, headers, "traceparent")

	// consumer side: the extracted context resumes the same trace
	consumeCtx := propagator.Extract(context.Background(), &MessageHeaderCarrier{Headers: headers})
	got := trace.SpanContextFromContext(consumeCtx)
	assert.Equal(t, spanCtx.TraceID(), got.TraceID())
	assert.True(t, got.IsRemote())
}

func TestRecordConsumeErrorBeforeInitIsNoop(t *testing.T) {
	// meters are registered lazily at startup; a consume error raced ahead
	// of init must not panic
	assert.NotPanics(t, func() {
		RecordConsumeError(context.Background(), "mazraaty.delivery.normal")
	})
}
