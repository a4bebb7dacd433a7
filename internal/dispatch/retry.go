package dispatch

import (
	"math/rand"
	"time"

	"Mazraaty/internal/model"
	"Mazraaty/pkg/errors"
)

// Backoff computes the delay before the next attempt: exponential in the
// attempt number with full jitter, capped, and never below the provider's
// retry-after hint.
func Backoff(attemptNo int, base, cap time.Duration, hint time.Duration) time.Duration {
	if attemptNo < 1 {
		attemptNo = 1
	}

	ceiling := base
	for i := 1; i < attemptNo; i++ {
		ceiling *= 2
		if ceiling >= cap {
			ceiling = cap
			break
		}
	}

	delay := time.Duration(rand.Int63n(int64(ceiling) + 1))
	if delay < hint {
		delay = hint
	}
	return delay
}

// RetryVerdict says what to do with a transient failure.
type RetryVerdict struct {
	Retry bool
	// FinalKind overrides the error kind when the leg must stop retrying.
	FinalKind errors.ErrorKind
	Delay     time.Duration
}

// JudgeRetry applies the per-priority budget and the notification TTL to a
// transient failure. attemptNo is the attempt that just failed.
func JudgeRetry(kind errors.ErrorKind, priority model.Priority, attemptNo int, expiresAt time.Time, now time.Time, base, cap, hint time.Duration) RetryVerdict {
	if !kind.IsTransient() {
		return RetryVerdict{Retry: false, FinalKind: kind}
	}

	if attemptNo >= priority.RetryBudget() {
		return RetryVerdict{Retry: false, FinalKind: errors.KindBudgetExhausted}
	}

	// a retry that could only land after expiry spends budget it does not have
	delay := Backoff(attemptNo, base, cap, hint)
	if now.Add(delay).After(expiresAt) {
		return RetryVerdict{Retry: false, FinalKind: errors.KindBudgetExhausted}
	}

	return RetryVerdict{Retry: true, Delay: delay}
}
