// Package dlib detects faces and extracts 128-dimension descriptors with dlib through go-face.
package dlib

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Kagami/go-face"
	"github.com/kozaktomas/facewatch/internal/recognition"
)

// ErrClosed is returned by Detect after Close.
var ErrClosed = errors.New("dlib detector closed")

// Detector wraps a go-face recognizer. The underlying dlib models are not
// safe for concurrent use, so every call is serialized.
type Detector struct {
	mu  sync.Mutex
	rec *face.Recognizer
}

// New loads the shape predictor, ResNet and CNN models from modelsDir.
func New(modelsDir string) (*Detector, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("loading dlib models from %s: %w", modelsDir, err)
	}
	return &Detector{rec: rec}, nil
}

// Detect returns every face in the JPEG image together with its descriptor.
func (d *Detector) Detect(ctx context.Context, jpegData []byte) ([]recognition.DetectedFace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	if d.rec == nil {
		d.mu.Unlock()
		return nil, ErrClosed
	}
	faces, err := d.rec.Recognize(jpegData)
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("dlib recognize: %w", err)
	}

	detected := make([]recognition.DetectedFace, 0, len(faces))
	for _, f := range faces {
		emb := make(recognition.Embedding, len(f.Descriptor))
		copy(emb, f.Descriptor[:])
		detected = append(detected, recognition.DetectedFace{
			Box:       f.Rectangle,
			Embedding: emb,
		})
	}
	return detected, nil
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rec != nil {
		d.rec.Close()
		d.rec = nil
	}
	return nil
}
