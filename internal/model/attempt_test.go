package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttemptStateTransitions(t *testing.T) {
	allowed := map[AttemptState][]AttemptState{
		AttemptStatePending: {
			AttemptStateInFlight,
			AttemptStateDroppedExpired,
			AttemptStateDroppedPreference,
		},
		AttemptStateInFlight: {
			AttemptStateDelivered,
			AttemptStateTransientFailed,
			AttemptStatePermanentFailed,
			AttemptStateDroppedExpired,
			AttemptStateDroppedPreference,
		},
	}

	all := []AttemptState{
		AttemptStatePending, AttemptStateInFlight, AttemptStateDelivered,
		AttemptStateTransientFailed, AttemptStatePermanentFailed,
		AttemptStateDroppedExpired, AttemptStateDroppedPreference,
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equalf(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func attemptRow(recipient int64, channel Channel, no int, state AttemptState) DeliveryAttempt {
	return DeliveryAttempt{RecipientID: recipient, Channel: channel, AttemptNo: no, State: state}
}

func TestHasOpenLegs(t *testing.T) {
	t.Run("no attempts", func(t *testing.T) {
		assert.False(t, HasOpenLegs(nil))
	})

	t.Run("pending leg is open", func(t *testing.T) {
		assert.True(t, HasOpenLegs([]DeliveryAttempt{
			attemptRow(1, ChannelSMS, 1, AttemptStatePending),
		}))
	})

	t.Run("latest transient failure is open", func(t *testing.T) {
		assert.True(t, HasOpenLegs([]DeliveryAttempt{
			attemptRow(1, ChannelSMS, 1, AttemptStateTransientFailed),
		}))
	})

	t.Run("superseded transient failure does not hold the leg open", func(t *testing.T) {
		// attempt 1 failed transiently, the retry delivered: the leg is done
		assert.False(t, HasOpenLegs([]DeliveryAttempt{
			attemptRow(1, ChannelSMS, 1, AttemptStateTransientFailed),
			attemptRow(1, ChannelSMS, 2, AttemptStateDelivered),
		}))
	})

	t.Run("retry chain still running is open", func(t *testing.T) {
		assert.True(t, HasOpenLegs([]DeliveryAttempt{
			attemptRow(1, ChannelEmail, 1, AttemptStateTransientFailed),
			attemptRow(1, ChannelEmail, 2, AttemptStateTransientFailed),
			attemptRow(1, ChannelEmail, 3, AttemptStateInFlight),
		}))
	})

	t.Run("legs are judged independently", func(t *testing.T) {
		attempts := []DeliveryAttempt{
			attemptRow(1, ChannelSMS, 1, AttemptStateTransientFailed),
			attemptRow(1, ChannelSMS, 2, AttemptStateDelivered),
			attemptRow(1, ChannelPush, 1, AttemptStatePending),
		}
		assert.True(t, HasOpenLegs(attempts))

		attempts[2].State = AttemptStateDroppedPreference
		assert.False(t, HasOpenLegs(attempts))
	})

	t.Run("all terminal closes the notification", func(t *testing.T) {
		assert.False(t, HasOpenLegs([]DeliveryAttempt{
			attemptRow(1, ChannelSMS, 1, AttemptStateTransientFailed),
			attemptRow(1, ChannelSMS, 2, AttemptStatePermanentFailed),
			attemptRow(2, ChannelSMS, 1, AttemptStateDroppedExpired),
			attemptRow(2, ChannelPush, 1, AttemptStateDelivered),
		}))
	})
}

func TestAttemptStateTerminal(t *testing.T) {
	assert.False(t, AttemptStatePending.Terminal())
	assert.False(t, AttemptStateInFlight.Terminal())
	assert.False(t, AttemptStateTransientFailed.Terminal(), "transient failures re-enter via retry")
	assert.True(t, AttemptStateDelivered.Terminal())
	assert.True(t, AttemptStatePermanentFailed.Terminal())
	assert.True(t, AttemptStateDroppedExpired.Terminal())
	assert.True(t, AttemptStateDroppedPreference.Terminal())
}
