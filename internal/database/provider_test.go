package database

import (
	"context"
	"errors"
	"testing"
)

type stubWriter struct{ EncodingWriter }

func TestProvider(t *testing.T) {
	RegisterPostgresBackend(nil)
	if IsInitialized() {
		t.Fatal("expected backend to be uninitialized")
	}
	if _, err := GetEncodingWriter(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}

	RegisterPostgresBackend(func() EncodingWriter { return stubWriter{} })
	t.Cleanup(func() { RegisterPostgresBackend(nil) })

	if !IsInitialized() {
		t.Fatal("expected backend to be initialized")
	}
	if _, err := GetEncodingReader(context.Background()); err != nil {
		t.Errorf("GetEncodingReader() error: %v", err)
	}
}
