package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"Mazraaty/config"
	"Mazraaty/internal/model"
	"Mazraaty/pkg/errors"
	"Mazraaty/pkg/logger"
)

// Pool runs the fixed worker set over the scheduler. Broker consumers feed
// it through Process and own the ack/nack; the pool only orders and executes.
type Pool struct {
	scheduler *Scheduler
	executor  *Executor
	workers   int

	cancelIntake context.CancelFunc
	cancelExec   context.CancelFunc
	wg           sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

func NewPool(executor *Executor) *Pool {
	return &Pool{
		scheduler: NewScheduler(),
		executor:  executor,
		workers:   config.Cfg.WorkerCount,
	}
}

// Start launches the workers. They run until Stop.
func (p *Pool) Start(parent context.Context) {
	// Separate lifetimes: intake stops immediately at Stop, execution gets
	// the drain timeout to let in-flight attempts run to completion.
	intakeCtx, cancelIntake := context.WithCancel(parent)
	execCtx, cancelExec := context.WithCancel(context.WithoutCancel(parent))
	p.cancelIntake = cancelIntake
	p.cancelExec = cancelExec

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(intakeCtx, execCtx)
	}

	logger.Logger.Info("Dispatch pool started",
		zap.Int("worker_count", p.workers),
	)
}

func (p *Pool) run(intakeCtx, execCtx context.Context) {
	defer p.wg.Done()

	for {
		task, err := p.scheduler.Dequeue(intakeCtx)
		if err != nil {
			return
		}

		task.finish(p.executor.Execute(execCtx, task))
	}
}

// Process submits one delivery task and blocks until a worker finishes it.
// The returned error follows consumer semantics: nil acks, SkipMessageError
// acks-and-drops, anything else nacks for redelivery.
func (p *Pool) Process(ctx context.Context, dt model.DeliveryTask) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return errors.Classified(errors.KindShutdown, fmt.Errorf("dispatch pool is stopped"))
	}
	p.mu.Unlock()

	task := NewTask(dt)
	p.scheduler.Enqueue(task)

	select {
	case <-ctx.Done():
		// the broker redelivers; the worker that picks the task up later
		// will detect the duplicate through the attempt row
		return errors.Classified(errors.KindShutdown, ctx.Err())
	case err := <-task.done:
		return err
	}
}

// Stop drains the pool: stops intake, lets in-flight attempts finish within
// the drain timeout, and fails unstarted tasks back to their consumers.
func (p *Pool) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	for _, task := range p.scheduler.Drain() {
		task.finish(errors.Classified(errors.KindShutdown, fmt.Errorf("shutting down before start")))
	}

	p.cancelIntake()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Logger.Info("Dispatch pool drained")
	case <-time.After(config.Cfg.DrainTimeout()):
		logger.Logger.Warn("Dispatch pool drain timed out",
			zap.Duration("timeout", config.Cfg.DrainTimeout()),
		)
	}

	p.cancelExec()
}
