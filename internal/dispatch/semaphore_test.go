package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Mazraaty/internal/model"
)

func TestKeyedSemaphoresCapPerKey(t *testing.T) {
	k := newKeyedSemaphores(2)
	ctx := context.Background()

	require.NoError(t, k.Acquire(ctx, "t1", model.ChannelSMS))
	require.NoError(t, k.Acquire(ctx, "t1", model.ChannelSMS))

	// third acquire on the same key blocks until a release
	blockedCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := k.Acquire(blockedCtx, "t1", model.ChannelSMS)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	k.Release("t1", model.ChannelSMS)
	require.NoError(t, k.Acquire(ctx, "t1", model.ChannelSMS))
}

func TestKeyedSemaphoresIsolateKeys(t *testing.T) {
	k := newKeyedSemaphores(1)
	ctx := context.Background()

	require.NoError(t, k.Acquire(ctx, "t1", model.ChannelSMS))

	// a different channel and a different tenant are unaffected
	require.NoError(t, k.Acquire(ctx, "t1", model.ChannelEmail))
	require.NoError(t, k.Acquire(ctx, "t2", model.ChannelSMS))
}
