package testutil

import (
	"strconv"
	"sync"
)

// Sequence generates prefix1, prefix2, ... and never runs out.
//
// It satisfies both delivery.IDGenerator and engine.TraceGenerator, so a
// scenario can pin chunk accumulator names and trace tokens.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Sequence struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequence creates a sequence whose first value is prefix + "1".
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// Generate returns the next value.
func (s *Sequence) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.prefix + strconv.Itoa(s.n)
}

// Current returns how many values have been generated.
func (s *Sequence) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Reset restarts the sequence. The next value is prefix + "1".
func (s *Sequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n = 0
}

// ConstantGenerator returns the same token every time.
//
// Thread-safety: ConstantGenerator is stateless and safe for concurrent use.
type ConstantGenerator struct {
	token string
}

// NewConstantGenerator creates a generator for token.
// If token is empty, Generate returns "test-trace".
func NewConstantGenerator(token string) ConstantGenerator {
	if token == "" {
		token = "test-trace"
	}
	return ConstantGenerator{token: token}
}

// Generate returns the fixed token.
func (g ConstantGenerator) Generate() string {
	return g.token
}
