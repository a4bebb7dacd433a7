package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics covers the delivery pipeline end to end: admissions in,
// attempts through the workers, terminal outcomes out.
type PipelineMetrics struct {
	NotificationsAdmitted metric.Int64Counter
	NotificationsDeduped  metric.Int64Counter
	AttemptsTotal         metric.Int64Counter
	AttemptDuration       metric.Float64Histogram
	RetriesTotal          metric.Int64Counter
	DeadLettersTotal      metric.Int64Counter
	DroppedTotal          metric.Int64Counter
	QueueDepth            metric.Int64UpDownCounter
	WorkersBusy           metric.Int64UpDownCounter
}

var (
	m     *PipelineMetrics
	meter = otel.Meter("mazraaty-notify")
)

func InitMetrics() error {
	var err error
	m = &PipelineMetrics{}

	m.NotificationsAdmitted, err = meter.Int64Counter(
		"notifications_admitted_total",
		metric.WithDescription("Notifications accepted by ingress"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return err
	}

	m.NotificationsDeduped, err = meter.Int64Counter(
		"notifications_deduped_total",
		metric.WithDescription("Submissions suppressed by dedup key"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return err
	}

	m.AttemptsTotal, err = meter.Int64Counter(
		"delivery_attempts_total",
		metric.WithDescription("Delivery attempts by channel and outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return err
	}

	m.AttemptDuration, err = meter.Float64Histogram(
		"delivery_attempt_duration_seconds",
		metric.WithDescription("Provider call duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return err
	}

	m.RetriesTotal, err = meter.Int64Counter(
		"delivery_retries_total",
		metric.WithDescription("Retries scheduled after transient failures"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return err
	}

	m.DeadLettersTotal, err = meter.Int64Counter(
		"dead_letters_total",
		metric.WithDescription("Delivery legs parked in the DLQ"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return err
	}

	m.DroppedTotal, err = meter.Int64Counter(
		"deliveries_dropped_total",
		metric.WithDescription("Legs dropped for preference or expiry reasons"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return err
	}

	m.QueueDepth, err = meter.Int64UpDownCounter(
		"dispatch_queue_depth",
		metric.WithDescription("Tasks buffered in the in-process dispatcher"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return err
	}

	m.WorkersBusy, err = meter.Int64UpDownCounter(
		"dispatch_workers_busy",
		metric.WithDescription("Workers currently executing an attempt"),
		metric.WithUnit("{worker}"),
	)
	return err
}

func initialized() bool {
	return m != nil
}

func RecordAdmitted(ctx context.Context, tenantID, kind string) {
	if !initialized() {
		return
	}
	m.NotificationsAdmitted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tenant", tenantID),
		attribute.String("kind", kind),
	))
}

func RecordDeduped(ctx context.Context, tenantID string) {
	if !initialized() {
		return
	}
	m.NotificationsDeduped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tenant", tenantID),
	))
}

func RecordAttempt(ctx context.Context, channel, outcome string, seconds float64) {
	if !initialized() {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("outcome", outcome),
	)
	m.AttemptsTotal.Add(ctx, 1, attrs)
	m.AttemptDuration.Record(ctx, seconds, attrs)
}

func RecordRetry(ctx context.Context, channel, errorKind string) {
	if !initialized() {
		return
	}
	m.RetriesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("error_kind", errorKind),
	))
}

func RecordDeadLetter(ctx context.Context, channel, errorKind string) {
	if !initialized() {
		return
	}
	m.DeadLettersTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("error_kind", errorKind),
	))
}

func RecordDropped(ctx context.Context, channel, reason string) {
	if !initialized() {
		return
	}
	m.DroppedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("reason", reason),
	))
}

func AddQueueDepth(ctx context.Context, delta int64) {
	if !initialized() {
		return
	}
	m.QueueDepth.Add(ctx, delta)
}

func AddWorkersBusy(ctx context.Context, delta int64) {
	if !initialized() {
		return
	}
	m.WorkersBusy.Add(ctx, delta)
}
