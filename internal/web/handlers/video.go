package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/facewatch/internal/constants"
	"github.com/kozaktomas/facewatch/internal/video"
)

// VideoStore persists uploads.
type VideoStore interface {
	Save(name string, src io.Reader) (string, error)
}

// VideoStreamer replays stored videos frame by frame.
type VideoStreamer interface {
	Stream(ctx context.Context, name string, yield func(jpeg []byte) error) error
}

// VideoHandler handles video upload and streaming.
type VideoHandler struct {
	store     VideoStore
	streamer  VideoStreamer
	maxUpload int64
}

func NewVideoHandler(store VideoStore, streamer VideoStreamer, maxUpload int64) *VideoHandler {
	return &VideoHandler{store: store, streamer: streamer, maxUpload: maxUpload}
}

// Upload stores a video and returns the URL it can be streamed from.
func (h *VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, ok := formFile(w, r, constants.VideoFormField, h.maxUpload)
	if !ok {
		return
	}
	defer file.Close()

	name, err := h.store.Save(header.Filename, file)
	if errors.Is(err, video.ErrInvalidName) {
		respondError(w, http.StatusBadRequest, "invalid file name")
		return
	}
	if err != nil {
		log.WithError(err).Error("Error saving video")
		respondErrorDetails(w, http.StatusInternalServerError, "error saving video", err)
		return
	}

	log.WithField("video", name).Info("Uploaded video")
	respondJSON(w, http.StatusOK, map[string]string{
		"video_url": "/stream_video/" + url.PathEscape(name),
	})
}

// Stream serves the annotated frames of an uploaded video.
func (h *VideoHandler) Stream(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	stream := newMJPEGWriter(w)
	defer stream.Close()

	err := h.streamer.Stream(r.Context(), name, stream.WriteFrame)
	if err == nil {
		return
	}

	logger := log.WithError(err).WithField("video", sanitizeForLog(name))
	if stream.Started() {
		logger.Warn("Video stream ended early")
		return
	}

	switch {
	case errors.Is(err, video.ErrNotFound):
		respondError(w, http.StatusNotFound, "video not found")
	case errors.Is(err, video.ErrExpired):
		logger.Info("Video expired and has been deleted")
		respondError(w, http.StatusGone, "video expired")
	default:
		logger.Error("Error processing video")
		respondErrorDetails(w, http.StatusInternalServerError, "error processing video", err)
	}
}
