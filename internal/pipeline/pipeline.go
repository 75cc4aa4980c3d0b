// Package pipeline turns one decoded frame into an annotated JPEG plus the faces found in it.
package pipeline

import (
	"context"
	"image"

	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/facewatch/internal/annotate"
	"github.com/kozaktomas/facewatch/internal/imaging"
	"github.com/kozaktomas/facewatch/internal/recognition"
)

// FaceRecognizer labels the faces in a frame.
type FaceRecognizer interface {
	RecognizeImage(ctx context.Context, img image.Image) ([]recognition.RecognizedFace, error)
}

// Frame is the result of processing one frame.
type Frame struct {
	JPEG  []byte
	Faces []recognition.RecognizedFace
}

// Processor runs recognition and annotation for a single frame.
type Processor struct {
	recognizer FaceRecognizer
	style      annotate.Style
}

func NewProcessor(recognizer FaceRecognizer, style annotate.Style) *Processor {
	return &Processor{recognizer: recognizer, style: style}
}

// Process recognizes and annotates img. A recognition failure is logged and
// the frame is still returned, without annotations, so streams keep going.
func (p *Processor) Process(ctx context.Context, img image.Image) (*Frame, error) {
	faces, err := p.recognizer.RecognizeImage(ctx, img)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.WithError(err).Warn("Frame recognition failed")
		faces = nil
	}

	data, err := imaging.EncodeJPEG(annotate.Draw(img, faces, p.style))
	if err != nil {
		return nil, err
	}
	return &Frame{JPEG: data, Faces: faces}, nil
}
