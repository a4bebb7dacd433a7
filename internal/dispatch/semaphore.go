package dispatch

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"Mazraaty/internal/model"
)

// keyedSemaphores caps concurrent provider calls per (tenant, channel). The
// map lock is only held for lookup; the blocking Acquire happens outside it.
type keyedSemaphores struct {
	mu    sync.Mutex
	sems  map[string]*semaphore.Weighted
	limit int64
}

func newKeyedSemaphores(limit int64) *keyedSemaphores {
	return &keyedSemaphores{
		sems:  make(map[string]*semaphore.Weighted),
		limit: limit,
	}
}

func (k *keyedSemaphores) get(tenantID string, channel model.Channel) *semaphore.Weighted {
	key := tenantID + ":" + string(channel)

	k.mu.Lock()
	defer k.mu.Unlock()

	sem, ok := k.sems[key]
	if !ok {
		sem = semaphore.NewWeighted(k.limit)
		k.sems[key] = sem
	}
	return sem
}

func (k *keyedSemaphores) Acquire(ctx context.Context, tenantID string, channel model.Channel) error {
	return k.get(tenantID, channel).Acquire(ctx, 1)
}

func (k *keyedSemaphores) Release(tenantID string, channel model.Channel) {
	k.get(tenantID, channel).Release(1)
}
