package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDownstream = errors.New("render backend unavailable")

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	b := New(3, time.Minute)

	for i := 0; i < 2; i++ {
		require.NoError(t, b.Allow())
		b.RecordFailure()
	}
	assert.Equal(t, StateClosed, b.State())

	require.NoError(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
}

func TestOpenFailsFastWithoutDownstreamCall(t *testing.T) {
	b := New(3, time.Minute)

	calls := 0
	downstream := func() error {
		calls++
		return errDownstream
	}

	for i := 0; i < 5; i++ {
		_ = b.Do(downstream)
	}

	// Calls 4 and 5 must be rejected at the breaker, not forwarded.
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, b.Do(downstream), ErrOpen)
	assert.Equal(t, 3, calls)
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	b := New(3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()

	// The streak restarted, so two more failures do not open the circuit.
	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State())
}

func TestHalfOpenAfterResetTimeout(t *testing.T) {
	b := New(1, time.Minute)

	current := time.Now()
	b.now = func() time.Time { return current }

	b.RecordFailure()
	assert.ErrorIs(t, b.Allow(), ErrOpen)

	// Still open just before the timeout elapses.
	current = current.Add(59 * time.Second)
	assert.ErrorIs(t, b.Allow(), ErrOpen)

	current = current.Add(2 * time.Second)
	assert.NoError(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestHalfOpenAdmitsExactlyOneTrial(t *testing.T) {
	b := New(1, time.Minute)

	current := time.Now()
	b.now = func() time.Time { return current }

	b.RecordFailure()
	current = current.Add(61 * time.Second)

	require.NoError(t, b.Allow())
	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, b.Allow(), ErrOpen)
	}
}

func TestHalfOpenTrialSuccessCloses(t *testing.T) {
	b := New(1, time.Minute)

	current := time.Now()
	b.now = func() time.Time { return current }

	b.RecordFailure()
	current = current.Add(61 * time.Second)

	require.NoError(t, b.Allow())
	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
	assert.NoError(t, b.Allow())
}

func TestHalfOpenTrialFailureReopensAndRestartsTimeout(t *testing.T) {
	b := New(1, time.Minute)

	current := time.Now()
	b.now = func() time.Time { return current }

	b.RecordFailure()
	current = current.Add(61 * time.Second)

	require.NoError(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())

	// The timeout restarted at the trial failure, not the original trip.
	current = current.Add(30 * time.Second)
	assert.ErrorIs(t, b.Allow(), ErrOpen)

	current = current.Add(31 * time.Second)
	assert.NoError(t, b.Allow())
}

func TestDoRecordsOutcome(t *testing.T) {
	b := New(2, time.Minute)

	assert.ErrorIs(t, b.Do(func() error { return errDownstream }), errDownstream)
	assert.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 0, b.failures)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(99).String())
}
