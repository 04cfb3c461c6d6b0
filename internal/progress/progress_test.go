package progress

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker(100)

	stats := tr.Snapshot()
	assert.False(t, stats.Running)
	assert.Equal(t, 0, stats.Total)

	tr.Start(10)
	assert.True(t, tr.Snapshot().Running)

	for i := 0; i < 7; i++ {
		tr.Record(true)
	}
	tr.Record(false)

	stats = tr.Snapshot()
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 8, stats.Completed)
	assert.Equal(t, 7, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
	assert.InDelta(t, 80.0, stats.Percent, 0.001)

	tr.Finish()
	stats = tr.Snapshot()
	assert.False(t, stats.Running)
	assert.Equal(t, 8, stats.Completed) // counters survive Finish
}

func TestCompletedNeverExceedsTotal(t *testing.T) {
	tr := NewTracker(10)
	tr.Start(3)

	for i := 0; i < 10; i++ {
		tr.Record(true)
	}

	stats := tr.Snapshot()
	assert.Equal(t, 3, stats.Completed)
	assert.Equal(t, stats.Completed, stats.Succeeded+stats.Failed)
}

func TestZeroTotalPercent(t *testing.T) {
	tr := NewTracker(10)
	tr.Start(0)
	assert.Equal(t, 0.0, tr.Snapshot().Percent)
}

func TestStartResetsPreviousScan(t *testing.T) {
	tr := NewTracker(10)

	tr.Start(5)
	tr.Record(true)
	tr.Record(false)
	tr.Logf("info", "old scan")
	tr.Finish()

	tr.Start(3)
	stats := tr.Snapshot()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 0, stats.Completed)
	assert.Equal(t, 0, stats.Failed)
	assert.Empty(t, tr.RecentLogs(0))
}

func TestLogRingDropsOldest(t *testing.T) {
	tr := NewTracker(3)
	tr.Start(1)

	for i := 1; i <= 5; i++ {
		tr.Logf("info", "entry %d", i)
	}

	logs := tr.RecentLogs(0)
	require.Len(t, logs, 3)
	assert.Equal(t, "entry 3", logs[0].Message)
	assert.Equal(t, "entry 4", logs[1].Message)
	assert.Equal(t, "entry 5", logs[2].Message)
}

func TestRecentLogsLimit(t *testing.T) {
	tr := NewTracker(10)
	tr.Start(1)

	for i := 1; i <= 6; i++ {
		tr.Logf("info", "entry %d", i)
	}

	logs := tr.RecentLogs(2)
	require.Len(t, logs, 2)
	assert.Equal(t, "entry 5", logs[0].Message)
	assert.Equal(t, "entry 6", logs[1].Message)

	// Asking for more than exists returns everything.
	assert.Len(t, tr.RecentLogs(50), 6)
}

func TestConcurrentRecording(t *testing.T) {
	tr := NewTracker(50)
	tr.Start(200)

	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				tr.Record(i%4 != 0)
				tr.Logf("info", "worker %d item %d", w, i)
			}
		}(w)
	}
	wg.Wait()

	stats := tr.Snapshot()
	assert.Equal(t, 200, stats.Completed)
	assert.Equal(t, stats.Completed, stats.Succeeded+stats.Failed)
	assert.Len(t, tr.RecentLogs(0), 50)
}

func TestLogfFormatting(t *testing.T) {
	tr := NewTracker(5)
	tr.Logf("error", "fetch failed for %s: %s", "B08N5WRWNW", fmt.Sprintf("status %d", 504))

	logs := tr.RecentLogs(1)
	require.Len(t, logs, 1)
	assert.Equal(t, "error", logs[0].Level)
	assert.Equal(t, "fetch failed for B08N5WRWNW: status 504", logs[0].Message)
	assert.False(t, logs[0].Timestamp.IsZero())
}
