package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitUnderLimitDoesNotBlock(t *testing.T) {
	limiter := NewSlidingWindow(5, time.Minute)

	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, 5, limiter.InFlight())
}

func TestWaitBlocksWhenWindowFull(t *testing.T) {
	limiter := NewSlidingWindow(2, 150*time.Millisecond)

	require.NoError(t, limiter.Wait(context.Background()))
	require.NoError(t, limiter.Wait(context.Background()))

	// Third call must wait for the oldest entry to age out.
	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	limiter := NewSlidingWindow(1, time.Minute)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWindowSlides(t *testing.T) {
	limiter := NewSlidingWindow(3, time.Minute)

	current := time.Now()
	limiter.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Wait(context.Background()))
	}
	assert.Equal(t, 3, limiter.InFlight())

	// Advance past the window: every entry ages out.
	current = current.Add(61 * time.Second)
	assert.Equal(t, 0, limiter.InFlight())

	require.NoError(t, limiter.Wait(context.Background()))
	assert.Equal(t, 1, limiter.InFlight())
}

func TestPartialExpiry(t *testing.T) {
	limiter := NewSlidingWindow(10, time.Minute)

	current := time.Now()
	limiter.now = func() time.Time { return current }

	require.NoError(t, limiter.Wait(context.Background()))
	current = current.Add(40 * time.Second)
	require.NoError(t, limiter.Wait(context.Background()))
	require.NoError(t, limiter.Wait(context.Background()))

	// 25s later the first entry is out of the window, the other two remain.
	current = current.Add(25 * time.Second)
	assert.Equal(t, 2, limiter.InFlight())
}

func TestConcurrentWaitersNeverExceedLimit(t *testing.T) {
	const limit = 4
	limiter := NewSlidingWindow(limit, 200*time.Millisecond)

	var wg sync.WaitGroup
	errs := make(chan error, 12)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- limiter.Wait(context.Background())
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.LessOrEqual(t, limiter.InFlight(), limit)
}

func TestNewSlidingWindowClampsInvalidInput(t *testing.T) {
	limiter := NewSlidingWindow(0, -time.Second)
	assert.Equal(t, 1, limiter.limit)
	assert.Equal(t, time.Minute, limiter.window)
}
