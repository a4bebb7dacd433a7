package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Mazraaty/internal/model"
)

func task(tenant string, p model.Priority, n int64) *Task {
	return NewTask(model.DeliveryTask{
		NotificationID: n,
		TenantID:       tenant,
		Priority:       p,
	})
}

func TestSchedulerStrictPriority(t *testing.T) {
	s := NewScheduler()

	s.Enqueue(task("t1", model.PriorityLow, 1))
	s.Enqueue(task("t1", model.PriorityNormal, 2))
	s.Enqueue(task("t1", model.PriorityCritical, 3))
	s.Enqueue(task("t1", model.PriorityHigh, 4))

	ctx := context.Background()
	var got []int64
	for i := 0; i < 4; i++ {
		tk, err := s.Dequeue(ctx)
		require.NoError(t, err)
		got = append(got, tk.NotificationID)
	}

	assert.Equal(t, []int64{3, 4, 2, 1}, got)
	assert.Equal(t, 0, s.Len())
}

func TestSchedulerTenantRoundRobin(t *testing.T) {
	s := NewScheduler()

	// tenant A floods, tenant B submits two tasks
	for i := int64(1); i <= 6; i++ {
		s.Enqueue(task("A", model.PriorityNormal, i))
	}
	s.Enqueue(task("B", model.PriorityNormal, 101))
	s.Enqueue(task("B", model.PriorityNormal, 102))

	ctx := context.Background()
	posB := make([]int, 0, 2)
	for i := 0; i < 8; i++ {
		tk, err := s.Dequeue(ctx)
		require.NoError(t, err)
		if tk.TenantID == "B" {
			posB = append(posB, i)
		}
	}

	require.Len(t, posB, 2)
	// B's tasks interleave with A's instead of waiting behind the flood
	assert.Less(t, posB[0], 3, "first B task served within the first rotation rounds")
	assert.Less(t, posB[1], 5, "second B task not starved by A's backlog")
}

func TestSchedulerUnknownPriorityFallsBack(t *testing.T) {
	s := NewScheduler()
	s.Enqueue(task("t1", model.Priority("urgent"), 7))

	tk, err := s.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), tk.NotificationID)
}

func TestSchedulerDequeueBlocksUntilEnqueue(t *testing.T) {
	s := NewScheduler()

	done := make(chan *Task, 1)
	go func() {
		tk, _ := s.Dequeue(context.Background())
		done <- tk
	}()

	select {
	case <-done:
		t.Fatal("Dequeue returned with nothing queued")
	case <-time.After(20 * time.Millisecond):
	}

	s.Enqueue(task("t1", model.PriorityNormal, 9))

	select {
	case tk := <-done:
		assert.Equal(t, int64(9), tk.NotificationID)
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not wake after Enqueue")
	}
}

func TestSchedulerDequeueHonoursContext(t *testing.T) {
	s := NewScheduler()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Dequeue(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSchedulerDrain(t *testing.T) {
	s := NewScheduler()
	s.Enqueue(task("A", model.PriorityCritical, 1))
	s.Enqueue(task("B", model.PriorityLow, 2))
	s.Enqueue(task("A", model.PriorityLow, 3))

	drained := s.Drain()
	assert.Len(t, drained, 3)
	assert.Equal(t, 0, s.Len())
}
