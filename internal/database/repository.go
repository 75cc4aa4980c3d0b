package database

import (
	"context"
)

// EncodingReader provides read-only access to cached gallery embeddings
type EncodingReader interface {
	// Get retrieves an encoding by object name, returns nil if not found
	Get(ctx context.Context, objectName string) (*StoredEncoding, error)
	// Count returns the total number of cached encodings
	Count(ctx context.Context) (int, error)
	// ListPersons returns person names with their cached encoding counts
	ListPersons(ctx context.Context) (map[string]int, error)
}

// EncodingWriter provides write access to cached gallery embeddings
type EncodingWriter interface {
	EncodingReader

	// Save stores an encoding, replacing any previous one for the same object
	Save(ctx context.Context, enc StoredEncoding) error
	// DeleteMissing removes encodings whose object is not in keep and returns how many were removed
	DeleteMissing(ctx context.Context, keep []string) (int, error)
}
