package testutil

import (
	"fmt"
	"sync"
)

// IDs generates a predictable id sequence: "<prefix>-1", "<prefix>-2", ...
//
// Used in place of the uuid-backed generator so optimistic placeholder ids
// and session tokens are stable across test runs and golden comparisons.
type IDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewIDs creates a sequence generator with the given prefix.
func NewIDs(prefix string) *IDs {
	if prefix == "" {
		prefix = "test-id"
	}
	return &IDs{prefix: prefix}
}

// NewID returns the next id in the sequence.
func (g *IDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
