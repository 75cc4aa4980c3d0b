package database

import (
	"context"
	"errors"
	"sync"
)

// ErrNotInitialized is returned when no PostgreSQL backend has been registered.
var ErrNotInitialized = errors.New("PostgreSQL backend not initialized: DATABASE_URL is required")

var (
	providerMu             sync.RWMutex
	postgresEncodingWriter func() EncodingWriter
)

// RegisterPostgresBackend registers the PostgreSQL repository constructor.
// This is called by the postgres package to avoid import cycles.
func RegisterPostgresBackend(writer func() EncodingWriter) {
	providerMu.Lock()
	defer providerMu.Unlock()
	postgresEncodingWriter = writer
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return postgresEncodingWriter != nil
}

// GetEncodingReader returns an EncodingReader from the PostgreSQL backend
func GetEncodingReader(ctx context.Context) (EncodingReader, error) {
	return GetEncodingWriter(ctx)
}

// GetEncodingWriter returns an EncodingWriter from the PostgreSQL backend
func GetEncodingWriter(_ context.Context) (EncodingWriter, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if postgresEncodingWriter == nil {
		return nil, ErrNotInitialized
	}
	return postgresEncodingWriter(), nil
}
