// Package identity produces the opaque identifiers that tie step requests
// into one conversation.
package identity

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// Generator returns a new unique opaque identifier on every call.
type Generator interface {
	NewID() string
}

// UUID generates random (version 4) UUID strings.
type UUID struct{}

// NewID implements Generator.
func (UUID) NewID() string { return uuid.NewString() }

// Func adapts a plain function into a Generator.
type Func func() string

// NewID implements Generator.
func (f Func) NewID() string { return f() }

// Sequence is a deterministic Generator for tests. It yields "<prefix>-1",
// "<prefix>-2", and so on.
type Sequence struct {
	Prefix string

	mu sync.Mutex
	n  int
}

// NewID implements Generator.
func (s *Sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	prefix := s.Prefix
	if prefix == "" {
		prefix = "id"
	}
	return prefix + "-" + strconv.Itoa(s.n)
}
