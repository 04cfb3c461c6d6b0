// Package queue holds pending scan jobs for the background worker.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrQueueClosed = errors.New("queue is closed")

// Task points at a scan job awaiting execution.
type Task struct {
	JobID      string
	EnqueuedAt time.Time
}

// Queue is a FIFO of scan tasks. Pop blocks until a task arrives, the
// context is cancelled, or the queue is closed and drained.
//
// Wakeups use a broadcast channel instead of a sync.Cond: waiters select on
// ctx.Done and the channel without holding the lock, so cancellation never
// races the mutex.
type Queue struct {
	mu     sync.Mutex
	tasks  []*Task
	wake   chan struct{}
	closed bool
}

func New() *Queue {
	return &Queue{
		tasks: make([]*Task, 0),
		wake:  make(chan struct{}),
	}
}

func (q *Queue) Push(task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now()
	}

	q.tasks = append(q.tasks, task)

	// Broadcast: every current waiter re-checks the queue.
	close(q.wake)
	q.wake = make(chan struct{})

	return nil
}

func (q *Queue) Pop(ctx context.Context) (*Task, error) {
	for {
		q.mu.Lock()

		if len(q.tasks) > 0 {
			task := q.tasks[0]
			q.tasks = q.tasks[1:]
			q.mu.Unlock()
			return task, nil
		}

		if q.closed {
			q.mu.Unlock()
			return nil, ErrQueueClosed
		}

		wake := q.wake
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wake:
		}
	}
}

func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.wake)
		q.wake = make(chan struct{})
	}

	return nil
}
