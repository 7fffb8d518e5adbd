package testutil

import (
	"fmt"
	"sync"
)

// FixedRunIDGenerator returns the same run id every time.
//
// Pipelines built with it log identical run ids across test runs, so log
// output can be compared byte for byte.
//
// Thread-safety: FixedRunIDGenerator is stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a generator that always returns id.
// If id is empty, Generate() returns "test-run-default".
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run id.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}

// SequentialRunIDGenerator returns test-run-0001, test-run-0002, ...
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type SequentialRunIDGenerator struct {
	mu  sync.Mutex
	seq int
}

// Generate returns the next run id in sequence.
func (g *SequentialRunIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("test-run-%04d", g.seq)
}

// Reset restarts the sequence. The next Generate() returns test-run-0001.
func (g *SequentialRunIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
