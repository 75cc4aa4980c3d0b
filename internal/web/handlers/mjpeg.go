package handlers

import (
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/kozaktomas/facewatch/internal/constants"
)

// mjpegWriter writes a multipart/x-mixed-replace JPEG stream. Response
// headers are only sent with the first frame so callers can still reply
// with a JSON error when a stream fails before producing anything.
type mjpegWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	mw      *multipart.Writer
	started bool
}

func newMJPEGWriter(w http.ResponseWriter) *mjpegWriter {
	mw := multipart.NewWriter(w)
	mw.SetBoundary(constants.StreamBoundary)
	return &mjpegWriter{w: w, rc: http.NewResponseController(w), mw: mw}
}

// WriteFrame sends one JPEG part and flushes it to the client.
func (m *mjpegWriter) WriteFrame(jpeg []byte) error {
	if !m.started {
		h := m.w.Header()
		h.Set("Content-Type", "multipart/x-mixed-replace; boundary="+constants.StreamBoundary)
		h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		// Streams outlive the server write timeout.
		m.rc.SetWriteDeadline(time.Time{})
		m.w.WriteHeader(http.StatusOK)
		m.started = true
	}

	part, err := m.mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":   {"image/jpeg"},
		"Content-Length": {strconv.Itoa(len(jpeg))},
	})
	if err != nil {
		return err
	}
	if _, err := part.Write(jpeg); err != nil {
		return err
	}
	return m.rc.Flush()
}

// Started reports whether any frame has been written.
func (m *mjpegWriter) Started() bool {
	return m.started
}

// Close terminates a started stream with the closing boundary.
func (m *mjpegWriter) Close() error {
	if !m.started {
		return nil
	}
	return m.mw.Close()
}
