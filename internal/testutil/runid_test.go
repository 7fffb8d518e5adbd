package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedRunIDGenerator_ReturnsSameID(t *testing.T) {
	gen := NewFixedRunIDGenerator("test-run-123")

	assert.Equal(t, "test-run-123", gen.Generate())
	assert.Equal(t, "test-run-123", gen.Generate())
}

func TestFixedRunIDGenerator_EmptyIDDefault(t *testing.T) {
	assert.Equal(t, "test-run-default", NewFixedRunIDGenerator("").Generate())
}

func TestSequentialRunIDGenerator(t *testing.T) {
	var gen SequentialRunIDGenerator

	assert.Equal(t, "test-run-0001", gen.Generate())
	assert.Equal(t, "test-run-0002", gen.Generate())

	gen.Reset()
	assert.Equal(t, "test-run-0001", gen.Generate())
}

func TestSequentialRunIDGenerator_ThreadSafe(t *testing.T) {
	var gen SequentialRunIDGenerator
	const numGoroutines = 20
	const callsPerGoroutine = 50

	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, numGoroutines*callsPerGoroutine, "every id must be unique")
}
