package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/semaphore"

	"Mazraaty/internal/model"
	"Mazraaty/pkg/errors"
)

// Message is the channel-agnostic input to an adapter. Endpoint is already
// decrypted; adapters must never log it.
type Message struct {
	TenantID      string
	RecipientID   int64
	NotificationID int64
	Channel       model.Channel
	AttemptNo     int
	Priority      model.Priority
	Endpoint      string
	Subject       string
	Body          string
	Locale        model.Locale
	Kind          model.NotificationKind
}

// IdempotencyKey identifies one attempt of one delivery leg. Adapters pass it
// to their provider so a network failure after a successful send does not
// produce a duplicate message when the attempt is replayed.
func (m *Message) IdempotencyKey() string {
	return fmt.Sprintf("%d-%d-%s-%d", m.NotificationID, m.RecipientID, m.Channel, m.AttemptNo)
}

// Outcome is the classified result of one provider call.
type Outcome struct {
	Delivered      bool
	ProviderRef    string
	ErrorKind      errors.ErrorKind
	Err            error
	RetryAfterHint time.Duration
}

// Adapter delivers one message on one channel. Implementations classify
// failures into error kinds; they never retry internally.
type Adapter interface {
	Name() string
	Send(ctx context.Context, msg *Message) Outcome
}

// Guarded wraps an adapter with a circuit breaker and a concurrency cap.
// A tripped breaker reads as a throttled provider so the retry manager
// backs off instead of hammering it.
type Guarded struct {
	inner   Adapter
	breaker *gobreaker.CircuitBreaker
	sem     *semaphore.Weighted
	timeout time.Duration
}

func NewGuarded(inner Adapter, concurrency int64, timeout time.Duration) *Guarded {
	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && counts.TotalFailures*2 > counts.Requests
		},
	}

	return &Guarded{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		sem:     semaphore.NewWeighted(concurrency),
		timeout: timeout,
	}
}

func (g *Guarded) Name() string {
	return g.inner.Name()
}

func (g *Guarded) Send(ctx context.Context, msg *Message) Outcome {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return Outcome{ErrorKind: errors.KindShutdown, Err: err}
	}
	defer g.sem.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.breaker.Execute(func() (interface{}, error) {
		outcome := g.inner.Send(callCtx, msg)
		// Only transient provider failures count against the breaker;
		// a bad phone number says nothing about provider health.
		if !outcome.Delivered && outcome.ErrorKind.IsTransient() {
			return outcome, errors.Classified(outcome.ErrorKind, outcome.Err)
		}
		return outcome, nil
	})
	if err != nil {
		if outcome, ok := result.(Outcome); ok {
			return outcome
		}
		// breaker open: treat as throttled with a backoff hint
		return Outcome{
			ErrorKind:      errors.KindProviderThrottled,
			Err:            err,
			RetryAfterHint: 30 * time.Second,
		}
	}

	return result.(Outcome)
}
