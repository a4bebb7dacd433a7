package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"Mazraaty/internal/model"
	"Mazraaty/pkg/errors"
)

func TestBackoffBounds(t *testing.T) {
	base := 500 * time.Millisecond
	cap := 60 * time.Second

	for attempt := 1; attempt <= 10; attempt++ {
		ceiling := base
		for i := 1; i < attempt; i++ {
			ceiling *= 2
			if ceiling >= cap {
				ceiling = cap
				break
			}
		}
		for i := 0; i < 50; i++ {
			d := Backoff(attempt, base, cap, 0)
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.LessOrEqualf(t, d, ceiling, "attempt %d exceeded its jitter ceiling", attempt)
		}
	}
}

func TestBackoffNeverExceedsCap(t *testing.T) {
	base := 500 * time.Millisecond
	cap := 60 * time.Second

	for i := 0; i < 100; i++ {
		d := Backoff(40, base, cap, 0)
		assert.LessOrEqual(t, d, cap)
	}
}

func TestBackoffHonoursHint(t *testing.T) {
	base := 500 * time.Millisecond
	cap := 60 * time.Second
	hint := 10 * time.Second

	// attempt 1 has a 500ms ceiling, so without the hint the delay would
	// always be below it
	for i := 0; i < 50; i++ {
		d := Backoff(1, base, cap, hint)
		assert.GreaterOrEqual(t, d, hint, "retry_after hint is a lower bound")
	}
}

func TestJudgeRetryPermanentKind(t *testing.T) {
	v := JudgeRetry(errors.KindEndpointInvalid, model.PriorityHigh, 1,
		time.Now().Add(time.Hour), time.Now(),
		500*time.Millisecond, time.Minute, 0)

	assert.False(t, v.Retry)
	assert.Equal(t, errors.KindEndpointInvalid, v.FinalKind)
}

func TestJudgeRetryBudgetExhausted(t *testing.T) {
	// low priority budget is 1: the first failure is also the last
	v := JudgeRetry(errors.KindProviderTimeout, model.PriorityLow, 1,
		time.Now().Add(time.Hour), time.Now(),
		500*time.Millisecond, time.Minute, 0)

	assert.False(t, v.Retry)
	assert.Equal(t, errors.KindBudgetExhausted, v.FinalKind)
}

func TestJudgeRetryWithinBudget(t *testing.T) {
	v := JudgeRetry(errors.KindProviderTimeout, model.PriorityCritical, 3,
		time.Now().Add(time.Hour), time.Now(),
		500*time.Millisecond, time.Minute, 0)

	assert.True(t, v.Retry)
	assert.Equal(t, errors.KindNone, v.FinalKind)
	assert.GreaterOrEqual(t, v.Delay, time.Duration(0))
}

func TestJudgeRetryHintBeyondDeadline(t *testing.T) {
	now := time.Now()
	// next attempt cannot land before the deadline
	v := JudgeRetry(errors.KindProviderThrottled, model.PriorityCritical, 2,
		now.Add(time.Second), now,
		500*time.Millisecond, time.Minute, 30*time.Second)

	assert.False(t, v.Retry)
	assert.Equal(t, errors.KindBudgetExhausted, v.FinalKind)
}

func TestJudgeRetryShutdownIsTransient(t *testing.T) {
	v := JudgeRetry(errors.KindShutdown, model.PriorityNormal, 1,
		time.Now().Add(time.Hour), time.Now(),
		500*time.Millisecond, time.Minute, 0)

	assert.True(t, v.Retry, "legs interrupted by shutdown retry on the next worker")
}
