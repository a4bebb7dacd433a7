package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"Mazraaty/config"
	"Mazraaty/internal/model"
)

func inFlightAttempt(startedAgo time.Duration, now time.Time) *model.DeliveryAttempt {
	started := now.Add(-startedAgo)
	return &model.DeliveryAttempt{
		State:     model.AttemptStateInFlight,
		AttemptNo: 1,
		StartedAt: &started,
	}
}

func TestStaleInFlight(t *testing.T) {
	now := time.Now()
	window := 2 * config.Cfg.AdapterTimeout()

	t.Run("fresh row still has an owner", func(t *testing.T) {
		assert.False(t, staleInFlight(inFlightAttempt(time.Second, now), now))
	})

	t.Run("row inside the lock window is not stale", func(t *testing.T) {
		assert.False(t, staleInFlight(inFlightAttempt(window, now), now))
	})

	t.Run("row past the lock window was abandoned", func(t *testing.T) {
		assert.True(t, staleInFlight(inFlightAttempt(window+time.Second, now), now))
	})

	t.Run("missing started_at means the writer died mid-transition", func(t *testing.T) {
		assert.True(t, staleInFlight(&model.DeliveryAttempt{State: model.AttemptStateInFlight}, now))
	})
}

func TestAbandonedInFlightRowReentersRetryPath(t *testing.T) {
	// a stale in_flight row must be recoverable through the normal failure
	// machinery: in_flight -> transient_failed is a legal transition, and the
	// retry row it spawns carries the next attempt number
	assert.True(t, model.AttemptStateInFlight.CanTransitionTo(model.AttemptStateTransientFailed))
	assert.True(t, model.HasOpenLegs([]model.DeliveryAttempt{
		{RecipientID: 1, Channel: model.ChannelSMS, AttemptNo: 1, State: model.AttemptStateTransientFailed},
	}), "the interrupted leg stays open until its retry lands")
}
