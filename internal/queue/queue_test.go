package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopFIFO(t *testing.T) {
	q := New()

	require.NoError(t, q.Push(&Task{JobID: "job-1"}))
	require.NoError(t, q.Push(&Task{JobID: "job-2"}))
	require.NoError(t, q.Push(&Task{JobID: "job-3"}))
	assert.Equal(t, 3, q.Size())

	for _, want := range []string{"job-1", "job-2", "job-3"} {
		task, err := q.Pop(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, task.JobID)
		assert.False(t, task.EnqueuedAt.IsZero())
	}
	assert.Equal(t, 0, q.Size())
}

func TestPopBlocksUntilPush(t *testing.T) {
	q := New()

	got := make(chan *Task, 1)
	go func() {
		task, err := q.Pop(context.Background())
		if err == nil {
			got <- task
		}
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, q.Push(&Task{JobID: "late"}))

	select {
	case task := <-got:
		assert.Equal(t, "late", task.JobID)
	case <-time.After(time.Second):
		t.Fatal("Pop did not return after Push")
	}
}

func TestPopHonorsContext(t *testing.T) {
	q := New()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCloseUnblocksPop(t *testing.T) {
	q := New()

	errCh := make(chan error, 1)
	go func() {
		_, err := q.Pop(context.Background())
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, q.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrQueueClosed)
	case <-time.After(time.Second):
		t.Fatal("Pop did not return after Close")
	}
}

func TestPushAfterCloseRejected(t *testing.T) {
	q := New()
	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.Push(&Task{JobID: "x"}), ErrQueueClosed)
}

func TestPopExpiringContextsUnderConcurrentPush(t *testing.T) {
	// Cancellation while the queue is empty must return ctx.Err cleanly even
	// when pushes land at the same moment. Run with -race.
	q := New()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			q.Push(&Task{JobID: fmt.Sprintf("job-%d", i)})
			time.Sleep(50 * time.Microsecond)
		}
	}()

	for i := 0; i < 5000; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Microsecond)
		task, err := q.Pop(ctx)
		cancel()
		if err != nil {
			assert.ErrorIs(t, err, context.DeadlineExceeded)
		} else {
			assert.NotEmpty(t, task.JobID)
		}
	}

	close(stop)
	wg.Wait()
}

func TestPopConcurrentConsumersDrainEverything(t *testing.T) {
	q := New()

	const total = 200
	got := make(chan string, total)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				task, err := q.Pop(context.Background())
				if err != nil {
					return
				}
				got <- task.JobID
			}
		}()
	}

	for i := 0; i < total; i++ {
		require.NoError(t, q.Push(&Task{JobID: fmt.Sprintf("job-%d", i)}))
	}

	seen := make(map[string]bool)
	for i := 0; i < total; i++ {
		select {
		case id := <-got:
			seen[id] = true
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d of %d tasks consumed", i, total)
		}
	}
	assert.Len(t, seen, total)

	require.NoError(t, q.Close())
	wg.Wait()
}

func TestCloseDrainsRemainingTasks(t *testing.T) {
	q := New()
	require.NoError(t, q.Push(&Task{JobID: "pending"}))
	require.NoError(t, q.Close())

	task, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pending", task.JobID)

	_, err = q.Pop(context.Background())
	assert.ErrorIs(t, err, ErrQueueClosed)
}
