package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/facewatch/internal/livefeed"
)

type stubFeed struct {
	startStatus string
	stopStatus  string
	frames      [][]byte
	err         error
}

func (s *stubFeed) Start() string { return s.startStatus }
func (s *stubFeed) Stop() string  { return s.stopStatus }

func (s *stubFeed) Stream(_ context.Context, yield func([]byte) error) error {
	for _, f := range s.frames {
		if err := yield(f); err != nil {
			return err
		}
	}
	return s.err
}

func TestLiveHandler_StartStop(t *testing.T) {
	h := NewLiveHandler(&stubFeed{startStatus: livefeed.StatusAlreadyStarted, stopStatus: livefeed.StatusStopped})

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{"start", h.Start, "already started"},
		{"stop", h.Stop, "stopped"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			tc.handler(recorder, httptest.NewRequest(http.MethodPost, "/", nil))

			var resp map[string]string
			if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal: %v", err)
			}
			if resp["status"] != tc.want {
				t.Errorf("expected status %q, got %q", tc.want, resp["status"])
			}
		})
	}
}

func TestLiveHandler_FeedErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"idle", livefeed.ErrNotStreaming, http.StatusNotFound},
		{"busy", livefeed.ErrBusy, http.StatusConflict},
		{"camera", livefeed.ErrCameraUnavailable, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			NewLiveHandler(&stubFeed{err: tc.err}).Feed(recorder, httptest.NewRequest(http.MethodGet, "/video_feed", nil))

			if recorder.Code != tc.wantStatus {
				t.Errorf("expected %d, got %d", tc.wantStatus, recorder.Code)
			}
		})
	}
}

func TestLiveHandler_Feed(t *testing.T) {
	feed := &stubFeed{frames: [][]byte{[]byte("a"), []byte("b"), []byte("c")}}
	recorder := httptest.NewRecorder()
	NewLiveHandler(feed).Feed(recorder, httptest.NewRequest(http.MethodGet, "/video_feed", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if n := strings.Count(recorder.Body.String(), "--frame\r\n"); n != 3 {
		t.Errorf("expected 3 parts, got %d", n)
	}
}
