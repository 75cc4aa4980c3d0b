// Package recognition matches detected faces against the gallery of known identities.
// Detection and embedding extraction are delegated to a Detector implementation
// (see the dlib and remote subpackages).
package recognition

import (
	"context"
	"errors"
	"image"
)

// ErrNoFace is returned by callers that require at least one face in an image.
var ErrNoFace = errors.New("no face found in image")

// Embedding is a face descriptor compared by Euclidean distance.
type Embedding []float32

// KnownEncoding is one reference embedding of an identity and the file it came from.
type KnownEncoding struct {
	Embedding Embedding `json:"-"`
	Filename  string    `json:"filename"`
}

// Identity groups the reference embeddings of one person.
type Identity struct {
	Name      string          `json:"name"`
	Encodings []KnownEncoding `json:"encodings"`
}

// DetectedFace is a face found by a Detector.
type DetectedFace struct {
	Box       image.Rectangle
	Embedding Embedding
}

// RecognizedFace is a detected face labeled with its best match.
type RecognizedFace struct {
	Top      int     `json:"top"`
	Right    int     `json:"right"`
	Bottom   int     `json:"bottom"`
	Left     int     `json:"left"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

// Rect returns the face box as an image.Rectangle.
func (f RecognizedFace) Rect() image.Rectangle {
	return image.Rect(f.Left, f.Top, f.Right, f.Bottom)
}

// Detector finds faces in a JPEG image and extracts one embedding per face.
type Detector interface {
	Detect(ctx context.Context, jpegData []byte) ([]DetectedFace, error)
	Close() error
}

// IdentitySource provides the current snapshot of known identities.
type IdentitySource interface {
	Identities() []Identity
}
