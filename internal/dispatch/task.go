package dispatch

import (
	"Mazraaty/internal/model"
)

// Task is one delivery leg travelling through the in-process dispatcher. The
// done channel carries the handler result back to the consumer that owns the
// broker ack.
type Task struct {
	model.DeliveryTask

	done chan error
}

func NewTask(dt model.DeliveryTask) *Task {
	return &Task{
		DeliveryTask: dt,
		done:         make(chan error, 1),
	}
}

func (t *Task) finish(err error) {
	t.done <- err
}

// Wait blocks until a worker has finished the task.
func (t *Task) Wait() error {
	return <-t.done
}
