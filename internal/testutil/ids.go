package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDGenerator generates predictable journal ids.
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with the same generator produces byte-identical journals.
// Ids are unique, which the journal requires, and sort in issue order.
//
// Thread-safety: Generate is safe for concurrent use.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDGenerator creates a generator whose ids look like
// "<prefix>-000001". If prefix is empty, "test" is used.
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "test"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next id.
//
// Implements voting.IDGenerator interface.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%06d", g.prefix, g.n)
}

// Reset restarts numbering at 1.
func (g *SequentialIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
