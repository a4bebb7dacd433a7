package dispatch

import (
	"context"
	"sync"

	"Mazraaty/internal/model"
	"Mazraaty/pkg/metrics"
)

// Scheduler orders tasks for the worker pool: strict priority first, then
// round-robin across tenants inside each priority class so one tenant's
// campaign cannot starve the others.
type Scheduler struct {
	mu      sync.Mutex
	buckets map[model.Priority]*tenantRing
	signal  chan struct{}
	size    int
}

// tenantRing holds per-tenant FIFO queues and rotates between them.
type tenantRing struct {
	order  []string
	queues map[string][]*Task
	next   int
}

func newTenantRing() *tenantRing {
	return &tenantRing{
		queues: make(map[string][]*Task),
	}
}

func (r *tenantRing) push(t *Task) {
	if _, ok := r.queues[t.TenantID]; !ok {
		r.order = append(r.order, t.TenantID)
	}
	r.queues[t.TenantID] = append(r.queues[t.TenantID], t)
}

func (r *tenantRing) pop() *Task {
	if len(r.order) == 0 {
		return nil
	}

	if r.next >= len(r.order) {
		r.next = 0
	}
	tenant := r.order[r.next]

	queue := r.queues[tenant]
	task := queue[0]
	queue = queue[1:]

	if len(queue) == 0 {
		delete(r.queues, tenant)
		r.order = append(r.order[:r.next], r.order[r.next+1:]...)
		// next now points at the following tenant already
	} else {
		r.queues[tenant] = queue
		r.next++
	}

	return task
}

func (r *tenantRing) empty() bool {
	return len(r.order) == 0
}

func NewScheduler() *Scheduler {
	buckets := make(map[model.Priority]*tenantRing, len(model.PrioritiesDescending))
	for _, p := range model.PrioritiesDescending {
		buckets[p] = newTenantRing()
	}
	return &Scheduler{
		buckets: buckets,
		signal:  make(chan struct{}, 1),
	}
}

func (s *Scheduler) Enqueue(t *Task) {
	s.mu.Lock()
	bucket, ok := s.buckets[t.Priority]
	if !ok {
		bucket = s.buckets[model.PriorityNormal]
	}
	bucket.push(t)
	s.size++
	s.mu.Unlock()

	metrics.AddQueueDepth(context.Background(), 1)

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// Dequeue blocks until a task is available or ctx is cancelled.
func (s *Scheduler) Dequeue(ctx context.Context) (*Task, error) {
	for {
		s.mu.Lock()
		for _, p := range model.PrioritiesDescending {
			bucket := s.buckets[p]
			if bucket.empty() {
				continue
			}
			task := bucket.pop()
			s.size--
			s.mu.Unlock()
			metrics.AddQueueDepth(ctx, -1)
			return task, nil
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.signal:
		}
	}
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Drain pops everything still queued; used at shutdown to fail unstarted
// tasks back to the broker.
func (s *Scheduler) Drain() []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tasks []*Task
	for _, p := range model.PrioritiesDescending {
		bucket := s.buckets[p]
		for !bucket.empty() {
			tasks = append(tasks, bucket.pop())
			s.size--
		}
	}
	return tasks
}
