package recognition

import (
	"context"
	"fmt"
	"image"

	"github.com/kozaktomas/facewatch/internal/imaging"
)

// Recognizer runs detection and matching for whole images.
type Recognizer struct {
	detector Detector
	matcher  *Matcher
	gallery  IdentitySource
}

// NewRecognizer creates a recognizer over the given detector and gallery.
func NewRecognizer(detector Detector, matcher *Matcher, gallery IdentitySource) *Recognizer {
	return &Recognizer{
		detector: detector,
		matcher:  matcher,
		gallery:  gallery,
	}
}

// RecognizeBytes detects and labels every face in an encoded image.
func (r *Recognizer) RecognizeBytes(ctx context.Context, data []byte) ([]RecognizedFace, error) {
	jpegData, err := imaging.AsJPEG(data)
	if err != nil {
		return nil, err
	}
	return r.recognize(ctx, jpegData)
}

// RecognizeImage detects and labels every face in a decoded frame.
func (r *Recognizer) RecognizeImage(ctx context.Context, img image.Image) ([]RecognizedFace, error) {
	jpegData, err := imaging.EncodeJPEG(img)
	if err != nil {
		return nil, err
	}
	return r.recognize(ctx, jpegData)
}

func (r *Recognizer) recognize(ctx context.Context, jpegData []byte) ([]RecognizedFace, error) {
	detected, err := r.detector.Detect(ctx, jpegData)
	if err != nil {
		return nil, fmt.Errorf("detecting faces: %w", err)
	}

	// One snapshot per image so a frame is matched against a consistent gallery.
	identities := r.gallery.Identities()

	faces := make([]RecognizedFace, 0, len(detected))
	for _, d := range detected {
		name, distance := r.matcher.Match(d.Embedding, identities)
		faces = append(faces, RecognizedFace{
			Top:      d.Box.Min.Y,
			Right:    d.Box.Max.X,
			Bottom:   d.Box.Max.Y,
			Left:     d.Box.Min.X,
			Name:     name,
			Distance: distance,
		})
	}
	return faces, nil
}

// Names returns the set of labels present in faces, Unknown included.
func Names(faces []RecognizedFace) map[string]struct{} {
	names := make(map[string]struct{}, len(faces))
	for _, f := range faces {
		names[f.Name] = struct{}{}
	}
	return names
}
