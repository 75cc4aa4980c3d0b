package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/kozaktomas/facewatch/internal/pipeline"
)

// FrameSource yields decoded frames until io.EOF.
type FrameSource interface {
	Read() (image.Image, error)
	Close() error
}

// Opener opens a frame source for a stored video file.
type Opener func(path string) (FrameSource, error)

// FrameProcessor annotates a single frame.
type FrameProcessor interface {
	Process(ctx context.Context, img image.Image) (*pipeline.Frame, error)
}

// Streamer replays stored videos with recognized faces annotated.
type Streamer struct {
	registry  *Registry
	open      Opener
	processor FrameProcessor
}

func NewStreamer(registry *Registry, open Opener, processor FrameProcessor) *Streamer {
	return &Streamer{registry: registry, open: open, processor: processor}
}

// Stream validates name and calls yield with every annotated JPEG frame until
// the video ends, decoding fails, yield fails or ctx is done. It returns
// ErrNotFound or ErrExpired before any frame is yielded.
func (s *Streamer) Stream(ctx context.Context, name string, yield func(jpeg []byte) error) error {
	path, err := s.registry.Check(name)
	if err != nil {
		return err
	}

	src, err := s.open(path)
	if err != nil {
		return fmt.Errorf("opening video %s: %w", name, err)
	}
	defer src.Close()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		img, err := src.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("decoding frame: %w", err)
		}

		frame, err := s.processor.Process(ctx, img)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := yield(frame.JPEG); err != nil {
			return err
		}
	}
}
