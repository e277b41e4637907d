// Package idgen centralizes identifier generation so callers can inject
// deterministic generators in tests.
package idgen

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Generator produces opaque unique identifiers.
type Generator interface {
	NewID() string
}

// UUID generates random version 4 UUIDs.
type UUID struct{}

// NewID returns a new random UUID string.
func (UUID) NewID() string {
	return uuid.NewString()
}

// Short generates compact ids: the first 12 hex chars of a random UUID.
type Short struct{}

// NewID returns a 12 character hex id.
func (Short) NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Sequence yields prefix-1, prefix-2, ... and is safe for concurrent use.
type Sequence struct {
	Prefix string

	mu sync.Mutex
	n  int
}

// NewSequence returns a Sequence with the given prefix.
func NewSequence(prefix string) *Sequence {
	return &Sequence{Prefix: prefix}
}

// NewID returns the next id in the sequence.
func (s *Sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%d", s.Prefix, s.n)
}
