package handlers

import (
	"context"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/facewatch/internal/livefeed"
)

// LiveFeed is the webcam stream controller.
type LiveFeed interface {
	Start() string
	Stop() string
	Stream(ctx context.Context, yield func(jpeg []byte) error) error
}

// LiveHandler toggles and serves the live webcam feed.
type LiveHandler struct {
	feed LiveFeed
}

func NewLiveHandler(feed LiveFeed) *LiveHandler {
	return &LiveHandler{feed: feed}
}

// Start turns the feed on.
func (h *LiveHandler) Start(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": h.feed.Start()})
}

// Stop turns the feed off and releases the camera.
func (h *LiveHandler) Stop(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": h.feed.Stop()})
}

// Feed streams annotated camera frames while the feed is on.
func (h *LiveHandler) Feed(w http.ResponseWriter, r *http.Request) {
	stream := newMJPEGWriter(w)
	defer stream.Close()

	err := h.feed.Stream(r.Context(), stream.WriteFrame)
	if err == nil {
		return
	}
	if stream.Started() {
		log.WithError(err).Warn("Live feed stream ended")
		return
	}

	switch {
	case errors.Is(err, livefeed.ErrNotStreaming):
		respondError(w, http.StatusNotFound, "video feed not started")
	case errors.Is(err, livefeed.ErrBusy):
		respondError(w, http.StatusConflict, "video feed already in use")
	case errors.Is(err, livefeed.ErrCameraUnavailable):
		log.WithError(err).Error("Failed to open video capture")
		respondErrorDetails(w, http.StatusServiceUnavailable, "camera unavailable", err)
	default:
		log.WithError(err).Error("Live feed failed")
		respondErrorDetails(w, http.StatusInternalServerError, "error processing video feed", err)
	}
}
