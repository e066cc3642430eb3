package action

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator assigns identifiers to published actions.
// Implemented by UUIDv7Generator (production) and CountingGenerator
// (tests and the scenario harness).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 action IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// CountingGenerator returns "<prefix>-1", "<prefix>-2", ... without limit.
type CountingGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewCountingGenerator creates a counting generator. An empty prefix
// defaults to "action".
func NewCountingGenerator(prefix string) *CountingGenerator {
	if prefix == "" {
		prefix = "action"
	}
	return &CountingGenerator{prefix: prefix}
}

// Generate returns the next ID in the sequence.
func (g *CountingGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
