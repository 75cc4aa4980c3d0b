package database

import (
	"time"
)

// StoredEncoding is a cached gallery embedding keyed by the object it was computed from.
type StoredEncoding struct {
	ObjectName string // full object-store key, e.g. known_people/alice/1.jpg
	Person     string
	Filename   string
	Embedding  []float32
	Dim        int
	Model      string // recognizer that produced Embedding
	CreatedAt  time.Time
}
