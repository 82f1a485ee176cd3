package delivery

import (
	"math/rand"
	"sync"
)

// IDGenerator produces transient global identifiers for chunked deliveries.
type IDGenerator interface {
	Generate() string
}

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// DefaultIDLength is the identifier length used by RandomIDGenerator.
const DefaultIDLength = 14

// RandomIDGenerator returns random ASCII letter identifiers.
//
// Thread-safety: safe for concurrent use.
type RandomIDGenerator struct {
	Length int
}

// Generate returns a new identifier of g.Length letters (DefaultIDLength if unset).
func (g RandomIDGenerator) Generate() string {
	n := g.Length
	if n <= 0 {
		n = DefaultIDLength
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

// FixedGenerator returns predetermined identifiers in order.
//
// Panics when exhausted so a test that chunks more often than expected
// fails loudly.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator returning ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next identifier.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
