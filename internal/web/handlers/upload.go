package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// multipartMemory is how much of a multipart form is kept in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// formFile enforces the upload size cap and returns the named multipart file.
// On failure it writes the error response and returns ok=false.
func formFile(w http.ResponseWriter, r *http.Request, field string, maxSize int64) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "file too large")
			return nil, nil, false
		}
		respondErrorDetails(w, http.StatusBadRequest, "failed to parse multipart form", err)
		return nil, nil, false
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		log.WithField("field", field).Warn("Upload without file part")
		respondError(w, http.StatusBadRequest, "no file part")
		return nil, nil, false
	}
	if header.Filename == "" {
		file.Close()
		respondError(w, http.StatusBadRequest, "no selected file")
		return nil, nil, false
	}
	return file, header, true
}
