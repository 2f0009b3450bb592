package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDGenerator_Sequence(t *testing.T) {
	gen := NewSequentialIDGenerator("journal")

	assert.Equal(t, "journal-000001", gen.Generate())
	assert.Equal(t, "journal-000002", gen.Generate())
	assert.Equal(t, "journal-000003", gen.Generate())
}

func TestSequentialIDGenerator_EmptyPrefixDefault(t *testing.T) {
	gen := NewSequentialIDGenerator("")
	assert.Equal(t, "test-000001", gen.Generate())
}

func TestSequentialIDGenerator_Reset(t *testing.T) {
	gen := NewSequentialIDGenerator("x")
	gen.Generate()
	gen.Generate()

	gen.Reset()
	assert.Equal(t, "x-000001", gen.Generate())
}

func TestSequentialIDGenerator_UniqueUnderConcurrency(t *testing.T) {
	gen := NewSequentialIDGenerator("c")
	const numGoroutines = 20
	const callsPerGoroutine = 50

	var mu sync.Mutex
	seen := map[string]bool{}
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				id := gen.Generate()
				mu.Lock()
				assert.False(t, seen[id], "duplicate id %s", id)
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, numGoroutines*callsPerGoroutine)
}
