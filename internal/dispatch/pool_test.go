package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"Mazraaty/config"
	"Mazraaty/internal/model"
	"Mazraaty/pkg/errors"
	"Mazraaty/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Logger = zap.NewNop()
	config.Cfg.WorkerCount = 2
	config.Cfg.DrainTimeoutSeconds = 1
	config.Cfg.AdapterTimeoutSeconds = 5
	m.Run()
}

func TestPoolRejectsAfterStop(t *testing.T) {
	p := NewPool(nil)
	p.Start(context.Background())
	p.Stop()

	err := p.Process(context.Background(), model.DeliveryTask{
		NotificationID: 1,
		TenantID:       "t1",
		Priority:       model.PriorityNormal,
	})
	assert.Error(t, err)
	assert.Equal(t, errors.KindShutdown, errors.KindOf(err))
}

func TestPoolStopFailsQueuedTasks(t *testing.T) {
	p := NewPool(nil)
	// no workers started: the task stays queued and Stop must fail it back

	done := make(chan error, 1)
	go func() {
		done <- p.Process(context.Background(), model.DeliveryTask{
			NotificationID: 2,
			TenantID:       "t1",
			Priority:       model.PriorityLow,
		})
	}()

	// wait for the task to land in the scheduler
	deadline := time.Now().Add(time.Second)
	for p.scheduler.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	p.cancelIntake = func() {}
	p.cancelExec = func() {}
	p.Stop()

	select {
	case err := <-done:
		assert.Equal(t, errors.KindShutdown, errors.KindOf(err))
	case <-time.After(2 * time.Second):
		t.Fatal("queued task was not failed back at Stop")
	}
}

func TestPoolProcessHonoursConsumerContext(t *testing.T) {
	p := NewPool(nil)
	// no workers: the task will never finish, the consumer ctx must win

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Process(ctx, model.DeliveryTask{
		NotificationID: 3,
		TenantID:       "t1",
		Priority:       model.PriorityNormal,
	})
	assert.Equal(t, errors.KindShutdown, errors.KindOf(err))
}
