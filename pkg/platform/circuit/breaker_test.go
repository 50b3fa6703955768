package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_InitialState(t *testing.T) {
	b := New("symphony")
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "symphony", b.Name())
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := New("symphony", WithFailureThreshold(3))

	useFallback, change := b.RecordFailure()
	assert.False(t, useFallback)
	assert.False(t, change.Opened)

	useFallback, change = b.RecordFailure()
	assert.False(t, useFallback)
	assert.False(t, change.Opened)

	useFallback, change = b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)
	assert.True(t, b.IsOpen())
	assert.Equal(t, "open", b.State().String())
}

func TestBreaker_ClosesAfterSuccessThreshold(t *testing.T) {
	b := New("symphony", WithFailureThreshold(1), WithSuccessThreshold(2))

	b.RecordFailure()
	assert.True(t, b.IsOpen())

	closed, change := b.RecordSuccess()
	assert.False(t, closed)
	assert.False(t, change.Closed)
	assert.True(t, b.IsOpen())

	closed, change = b.RecordSuccess()
	assert.True(t, closed)
	assert.True(t, change.Closed)
	assert.False(t, b.IsOpen())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := New("symphony", WithFailureThreshold(3))

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()

	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.IsOpen())

	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

func TestBreaker_AllowsProbeAfterCooldown(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := New("symphony",
		WithFailureThreshold(1),
		WithCooldown(10*time.Second),
		WithClock(func() time.Time { return now }),
	)

	b.RecordFailure()
	assert.False(t, b.Allow(), "open breaker rejects calls during cooldown")

	now = now.Add(11 * time.Second)
	assert.True(t, b.Allow(), "one probe is admitted after cooldown")
	assert.False(t, b.Allow(), "second probe waits for another cooldown")

	now = now.Add(11 * time.Second)
	assert.True(t, b.Allow())
}

func TestBreaker_Reset(t *testing.T) {
	b := New("symphony", WithFailureThreshold(1))

	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
}
