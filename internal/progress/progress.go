// Package progress tracks live scan state for external pollers. All
// mutation happens from scan workers; snapshots are cheap and never block
// writers for more than a map copy under the lock.
package progress

import (
	"fmt"
	"sync"
	"time"
)

// Entry is one line of the bounded scan log.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// Stats is a point-in-time snapshot of a scan. Derived fields (percent,
// throughput) are computed at snapshot time rather than stored.
type Stats struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Succeeded      int     `json:"succeeded"`
	Failed         int     `json:"failed"`
	Percent        float64 `json:"percent"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Throughput     float64 `json:"throughput"`
	Running        bool    `json:"running"`
}

type Tracker struct {
	mu        sync.Mutex
	total     int
	completed int
	succeeded int
	failed    int
	startedAt time.Time
	running   bool

	logs    []Entry
	logCap  int
	logHead int
	logLen  int
}

// NewTracker creates a tracker whose log ring keeps at most logCap entries;
// older entries are dropped as new ones arrive.
func NewTracker(logCap int) *Tracker {
	if logCap < 1 {
		logCap = 1
	}
	return &Tracker{
		logs:   make([]Entry, logCap),
		logCap: logCap,
	}
}

// Start resets all counters for a new scan of total items.
func (t *Tracker) Start(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total = total
	t.completed = 0
	t.succeeded = 0
	t.failed = 0
	t.startedAt = time.Now()
	t.running = true
	t.logHead = 0
	t.logLen = 0
}

// Finish marks the scan as no longer running. Counters stay readable.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
}

// Record notes one completed item. Completed never exceeds total and
// succeeded+failed always equals completed.
func (t *Tracker) Record(success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.completed >= t.total {
		return
	}
	t.completed++
	if success {
		t.succeeded++
	} else {
		t.failed++
	}
}

// Logf appends a formatted entry to the bounded log.
func (t *Tracker) Logf(level, format string, args ...any) {
	entry := Entry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   fmt.Sprintf(format, args...),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx := (t.logHead + t.logLen) % t.logCap
	t.logs[idx] = entry
	if t.logLen < t.logCap {
		t.logLen++
	} else {
		t.logHead = (t.logHead + 1) % t.logCap
	}
}

// Snapshot returns the current stats.
func (t *Tracker) Snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := Stats{
		Total:     t.total,
		Completed: t.completed,
		Succeeded: t.succeeded,
		Failed:    t.failed,
		Running:   t.running,
	}

	if t.total > 0 {
		stats.Percent = 100 * float64(t.completed) / float64(t.total)
	}

	if !t.startedAt.IsZero() {
		elapsed := time.Since(t.startedAt).Seconds()
		stats.ElapsedSeconds = elapsed
		if elapsed > 0 {
			stats.Throughput = float64(t.completed) / elapsed
		}
	}

	return stats
}

// RecentLogs returns up to n of the newest log entries, oldest first.
func (t *Tracker) RecentLogs(n int) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n <= 0 || n > t.logLen {
		n = t.logLen
	}

	out := make([]Entry, 0, n)
	start := t.logLen - n
	for i := start; i < t.logLen; i++ {
		out = append(out, t.logs[(t.logHead+i)%t.logCap])
	}
	return out
}
