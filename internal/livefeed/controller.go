// Package livefeed owns the process-wide webcam stream: its on/off state,
// the camera handle and the single consumer allowed to read it.
package livefeed

import (
	"context"
	"errors"
	"fmt"
	"image"
	"maps"
	"runtime"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/facewatch/internal/pipeline"
	"github.com/kozaktomas/facewatch/internal/recognition"
)

var (
	ErrNotStreaming      = errors.New("live feed is not streaming")
	ErrBusy              = errors.New("live feed already has a consumer")
	ErrCameraUnavailable = errors.New("camera unavailable")
)

// Start/Stop results.
const (
	StatusStarted        = "started"
	StatusAlreadyStarted = "already started"
	StatusStopped        = "stopped"
	StatusAlreadyStopped = "already stopped"
)

// State of the live feed.
type State int

const (
	Idle State = iota
	Streaming
)

func (s State) String() string {
	if s == Streaming {
		return "streaming"
	}
	return "idle"
}

// Camera yields frames until it fails or is closed.
type Camera interface {
	Read() (image.Image, error)
	Close() error
}

// CameraOpener opens the camera on demand.
type CameraOpener func() (Camera, error)

// FrameProcessor annotates a single frame.
type FrameProcessor interface {
	Process(ctx context.Context, img image.Image) (*pipeline.Frame, error)
}

// Notifier receives the set of visible identities whenever it changes.
type Notifier interface {
	PersonsRecognized(names map[string]struct{})
}

// Controller is safe for concurrent use.
type Controller struct {
	open       CameraOpener
	processor  FrameProcessor
	notifier   Notifier
	gcInterval int
	gc         func()

	mu       sync.Mutex
	state    State
	camera   Camera
	consumer bool
}

// NewController creates an idle controller. gcInterval is the number of
// frames between forced garbage collections; zero disables it.
func NewController(open CameraOpener, processor FrameProcessor, notifier Notifier, gcInterval int) *Controller {
	return &Controller{
		open:       open,
		processor:  processor,
		notifier:   notifier,
		gcInterval: gcInterval,
		gc:         runtime.GC,
	}
}

// Start switches the feed on.
func (c *Controller) Start() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Streaming {
		return StatusAlreadyStarted
	}
	c.state = Streaming
	log.Info("Live feed started")
	return StatusStarted
}

// Stop switches the feed off and releases the camera.
func (c *Controller) Stop() string {
	c.mu.Lock()
	if c.state == Idle {
		c.mu.Unlock()
		return StatusAlreadyStopped
	}
	c.state = Idle
	cam := c.camera
	c.camera = nil
	c.mu.Unlock()

	if cam != nil {
		if err := cam.Close(); err != nil {
			log.WithError(err).Warn("Failed to release camera")
		}
	}
	log.Info("Live feed stopped")
	return StatusStopped
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// acquire opens the camera if needed and claims the single consumer slot.
func (c *Controller) acquire() (Camera, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Streaming {
		return nil, ErrNotStreaming
	}
	if c.consumer {
		return nil, ErrBusy
	}
	if c.camera == nil {
		cam, err := c.open()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
		}
		c.camera = cam
	}
	c.consumer = true
	return c.camera, nil
}

func (c *Controller) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumer = false
}

// active reports whether cam is still the handle of a streaming feed. A Stop
// followed by a Start leaves an old consumer holding a released camera.
func (c *Controller) active(cam Camera) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Streaming && c.camera == cam
}

// fail moves the feed to Idle after a camera failure. It returns false and
// leaves the feed untouched when cam is no longer the active handle.
func (c *Controller) fail(cam Camera) bool {
	c.mu.Lock()
	if c.camera != cam {
		c.mu.Unlock()
		return false
	}
	c.state = Idle
	c.camera = nil
	c.mu.Unlock()

	cam.Close()
	return true
}

// Stream reads, recognizes and annotates camera frames and passes each JPEG
// to yield. It returns ErrNotStreaming, ErrBusy or ErrCameraUnavailable
// before yielding anything; otherwise it runs until the feed is stopped, the
// camera fails, ctx is done or yield returns an error.
func (c *Controller) Stream(ctx context.Context, yield func(jpeg []byte) error) error {
	cam, err := c.acquire()
	if err != nil {
		return err
	}
	defer c.release()

	previous := map[string]struct{}{}
	frames := 0

	for {
		if ctx.Err() != nil || !c.active(cam) {
			return nil
		}

		img, err := cam.Read()
		if err != nil {
			if !c.fail(cam) {
				return nil
			}
			log.WithError(err).Error("Camera read failed, live feed stopped")
			return fmt.Errorf("reading camera: %w", err)
		}

		frame, err := c.processor.Process(ctx, img)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		names := recognition.Names(frame.Faces)
		if !maps.Equal(names, previous) {
			c.notifier.PersonsRecognized(names)
			previous = names
		}

		if err := yield(frame.JPEG); err != nil {
			return err
		}

		frames++
		if c.gcInterval > 0 && frames%c.gcInterval == 0 {
			c.gc()
		}
	}
}
