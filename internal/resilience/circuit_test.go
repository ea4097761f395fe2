package resilience

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	boom := eris.New("boom")

	for i := 0; i < 3; i++ {
		require.NoError(t, cb.Allow())
		cb.Record(boom)
	}

	assert.Equal(t, CircuitOpen, cb.State())
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen)
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	boom := eris.New("boom")

	cb.Record(boom)
	cb.Record(boom)
	cb.Record(nil)
	cb.Record(boom)
	cb.Record(boom)

	assert.Equal(t, CircuitClosed, cb.State())
	assert.NoError(t, cb.Allow())
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(1, 30*time.Second).WithNow(func() time.Time { return now })

	cb.Record(eris.New("boom"))
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen)

	// After the reset timeout a probe is allowed.
	now = now.Add(31 * time.Second)
	require.NoError(t, cb.Allow())
	assert.Equal(t, CircuitHalfOpen, cb.State())

	// Successful probe closes the circuit.
	cb.Record(nil)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(1, 30*time.Second).WithNow(func() time.Time { return now })

	cb.Record(eris.New("boom"))
	now = now.Add(31 * time.Second)
	require.NoError(t, cb.Allow())

	cb.Record(eris.New("still down"))
	assert.Equal(t, CircuitOpen, cb.State())
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen)
}
