package handlers

import (
	"context"
	"image"
	"io"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/facewatch/internal/annotate"
	"github.com/kozaktomas/facewatch/internal/constants"
	"github.com/kozaktomas/facewatch/internal/imaging"
	"github.com/kozaktomas/facewatch/internal/recognition"
)

// FaceRecognizer labels the faces of a decoded image.
type FaceRecognizer interface {
	RecognizeImage(ctx context.Context, img image.Image) ([]recognition.RecognizedFace, error)
}

// ImageHandler annotates single uploaded images.
type ImageHandler struct {
	recognizer FaceRecognizer
	maxUpload  int64
}

func NewImageHandler(recognizer FaceRecognizer, maxUpload int64) *ImageHandler {
	return &ImageHandler{recognizer: recognizer, maxUpload: maxUpload}
}

// Upload returns the uploaded image as JPEG with recognized faces drawn on it.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, ok := formFile(w, r, constants.ImageFormField, h.maxUpload)
	if !ok {
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondErrorDetails(w, http.StatusBadRequest, "failed to read upload", err)
		return
	}

	img, _, err := imaging.Decode(data)
	if err != nil {
		log.WithError(err).WithField("file", sanitizeForLog(header.Filename)).Warn("Undecodable image upload")
		respondErrorDetails(w, http.StatusBadRequest, "error processing image", err)
		return
	}

	faces, err := h.recognizer.RecognizeImage(r.Context(), img)
	if err != nil {
		log.WithError(err).Error("Image recognition failed")
		respondErrorDetails(w, http.StatusInternalServerError, "error processing image", err)
		return
	}

	out, err := imaging.EncodeJPEG(annotate.Draw(img, faces, annotate.Outline))
	if err != nil {
		respondErrorDetails(w, http.StatusInternalServerError, "error processing image", err)
		return
	}

	log.WithFields(log.Fields{
		"file":  sanitizeForLog(header.Filename),
		"faces": len(faces),
	}).Info("Image annotated")

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}
