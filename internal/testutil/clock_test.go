package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicClock_StartsAtZero(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, uint64(0), clock.Current())
}

func TestDeterministicClock_NextIncrementsMonotonically(t *testing.T) {
	clock := NewDeterministicClock()

	assert.Equal(t, uint64(1), clock.Next())
	assert.Equal(t, uint64(1), clock.Current())

	assert.Equal(t, uint64(2), clock.Next())
	assert.Equal(t, uint64(3), clock.Next())
	assert.Equal(t, uint64(3), clock.Current())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock()
	clock.Next()
	clock.Next()

	clock.Reset()
	assert.Equal(t, uint64(0), clock.Current())
	assert.Equal(t, uint64(1), clock.Next())
}

func TestDeterministicClock_Set(t *testing.T) {
	clock := NewDeterministicClock()
	clock.Set(41)

	assert.Equal(t, uint64(42), clock.Next())
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	clock := NewDeterministicClock()
	const numGoroutines = 50
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make([][]uint64, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		results[i] = make([]uint64, callsPerGoroutine)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				results[idx][j] = clock.Next()
			}
		}(i)
	}

	wg.Wait()

	allValues := make(map[uint64]bool)
	for i := 0; i < numGoroutines; i++ {
		for j := 0; j < callsPerGoroutine; j++ {
			val := results[i][j]
			require.False(t, allValues[val], "duplicate value %d", val)
			allValues[val] = true
		}
	}

	expectedTotal := numGoroutines * callsPerGoroutine
	assert.Len(t, allValues, expectedTotal)
	for i := uint64(1); i <= uint64(expectedTotal); i++ {
		assert.True(t, allValues[i], "missing value %d", i)
	}
}
