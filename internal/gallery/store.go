// Package gallery loads the known identities from an object store and keeps
// their embeddings in memory for the lifetime of the process.
package gallery

import (
	"sync"

	"github.com/kozaktomas/facewatch/internal/recognition"
)

// Store holds the loaded identities. It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	identities []recognition.Identity
}

func NewStore() *Store {
	return &Store{}
}

// Set replaces the whole gallery.
func (s *Store) Set(identities []recognition.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities = identities
}

// Identities returns the current snapshot. Callers must not modify it.
func (s *Store) Identities() []recognition.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identities
}

// Count returns the number of identities.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.identities)
}
