// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/kozaktomas/facewatch/internal/database"
)

// MockEncodingStore is an in-memory database.EncodingWriter.
type MockEncodingStore struct {
	mu        sync.RWMutex
	encodings map[string]database.StoredEncoding
	lastKeep  []string

	// Error injection
	GetError           error
	CountError         error
	ListPersonsError   error
	SaveError          error
	DeleteMissingError error
}

// NewMockEncodingStore creates an empty store.
func NewMockEncodingStore() *MockEncodingStore {
	return &MockEncodingStore{encodings: make(map[string]database.StoredEncoding)}
}

// AddEncoding seeds the store.
func (m *MockEncodingStore) AddEncoding(enc database.StoredEncoding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.encodings[enc.ObjectName] = enc
}

// Has reports whether objectName is cached.
func (m *MockEncodingStore) Has(objectName string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.encodings[objectName]
	return ok
}

// LastKeep returns the keep list of the last DeleteMissing call.
func (m *MockEncodingStore) LastKeep() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastKeep
}

// Get retrieves an encoding by object name
func (m *MockEncodingStore) Get(_ context.Context, objectName string) (*database.StoredEncoding, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	enc, ok := m.encodings[objectName]
	if !ok {
		return nil, nil
	}
	return &enc, nil
}

// Count returns the number of cached encodings
func (m *MockEncodingStore) Count(_ context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.encodings), nil
}

// ListPersons returns encoding counts per person
func (m *MockEncodingStore) ListPersons(_ context.Context) (map[string]int, error) {
	if m.ListPersonsError != nil {
		return nil, m.ListPersonsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	persons := make(map[string]int)
	for _, enc := range m.encodings {
		persons[enc.Person]++
	}
	return persons, nil
}

// Save stores or replaces an encoding
func (m *MockEncodingStore) Save(_ context.Context, enc database.StoredEncoding) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.encodings[enc.ObjectName] = enc
	return nil
}

// DeleteMissing removes encodings not named in keep
func (m *MockEncodingStore) DeleteMissing(_ context.Context, keep []string) (int, error) {
	if m.DeleteMissingError != nil {
		return 0, m.DeleteMissingError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastKeep = keep
	removed := 0
	for name := range m.encodings {
		if !slices.Contains(keep, name) {
			delete(m.encodings, name)
			removed++
		}
	}
	return removed, nil
}

var _ database.EncodingWriter = (*MockEncodingStore)(nil)
