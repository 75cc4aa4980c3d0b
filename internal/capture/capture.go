// Package capture reads frames from video files and cameras through OpenCV.
package capture

import (
	"fmt"
	"image"
	"io"
	"sync"

	"gocv.io/x/gocv"
)

// Source is an open OpenCV capture. Read returns io.EOF once no more frames
// can be grabbed.
type Source struct {
	mu  sync.Mutex
	vc  *gocv.VideoCapture
	mat gocv.Mat
}

// OpenFile opens a stored video for decoding.
func OpenFile(path string) (*Source, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening video file %s: %w", path, err)
	}
	return newSource(vc, path)
}

// OpenCamera opens a capture device and requests the given resolution.
func OpenCamera(device, width, height int) (*Source, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("opening camera %d: %w", device, err)
	}
	if width > 0 && height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	return newSource(vc, fmt.Sprintf("camera %d", device))
}

func newSource(vc *gocv.VideoCapture, name string) (*Source, error) {
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("capture %s could not be opened", name)
	}
	return &Source{vc: vc, mat: gocv.NewMat()}, nil
}

// Read grabs and decodes the next frame.
func (s *Source) Read() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vc == nil {
		return nil, io.EOF
	}
	if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, io.EOF
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("converting frame: %w", err)
	}
	return img, nil
}

// Close releases the capture. It is safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vc == nil {
		return nil
	}
	s.mat.Close()
	err := s.vc.Close()
	s.vc = nil
	return err
}
