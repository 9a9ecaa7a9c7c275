package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs is a deterministic engine.IDSource. Relationship ids come
// out as rel_000001, rel_000002, ...; snapshot suffixes as 8-hex counters
// 00000001, 00000002, ...
type SequentialIDs struct {
	mu   sync.Mutex
	rels int
	snap int
}

// NewSequentialIDs creates a source with both counters at zero.
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{}
}

// RelID returns the next relationship id.
func (s *SequentialIDs) RelID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rels++
	return fmt.Sprintf("rel_%06d", s.rels)
}

// SnapshotSuffix returns the next snapshot id suffix.
func (s *SequentialIDs) SnapshotSuffix() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap++
	return fmt.Sprintf("%08x", s.snap)
}
