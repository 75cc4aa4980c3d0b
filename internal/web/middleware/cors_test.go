package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/facewatch/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
}

func TestCORS(t *testing.T) {
	cfg := &config.WebConfig{AllowedOrigins: []string{"https://app.example.com"}}

	tests := []struct {
		name      string
		origin    string
		wantAllow string
	}{
		{"whitelisted", "https://app.example.com", "https://app.example.com"},
		{"localhost with port", "http://localhost:3000", "http://localhost:3000"},
		{"localhost bare", "https://localhost", "https://localhost"},
		{"localhost lookalike", "http://localhost.evil.com", ""},
		{"unknown", "https://evil.com", ""},
		{"no origin", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			recorder := httptest.NewRecorder()
			CORS(cfg)(okHandler()).ServeHTTP(recorder, req)

			if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != tc.wantAllow {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tc.wantAllow)
			}
			if recorder.Code != http.StatusTeapot {
				t.Errorf("expected request to reach handler, got %d", recorder.Code)
			}
		})
	}
}

func TestCORS_Wildcard(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://anything.example.org")
	recorder := httptest.NewRecorder()
	CORS(&config.WebConfig{AllowedOrigins: []string{"*"}})(okHandler()).ServeHTTP(recorder, req)

	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "https://anything.example.org" {
		t.Errorf("expected wildcard to echo origin, got %q", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/upload_image", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	recorder := httptest.NewRecorder()
	CORS(nil)(okHandler()).ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected preflight 200, got %d", recorder.Code)
	}
	if recorder.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("expected Allow-Methods header on preflight")
	}
}

func TestCheckOrigin(t *testing.T) {
	check := CheckOrigin(&config.WebConfig{AllowedOrigins: []string{"https://app.example.com"}})

	tests := []struct {
		name   string
		origin string
		host   string
		want   bool
	}{
		{"no origin", "", "faces.local", true},
		{"same host", "http://faces.local:8000", "faces.local:8000", true},
		{"whitelisted", "https://app.example.com", "faces.local", true},
		{"foreign", "https://evil.com", "faces.local", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			req.Host = tc.host
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if got := check(req); got != tc.want {
				t.Errorf("CheckOrigin() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	recorder := httptest.NewRecorder()
	SecurityHeaders()(okHandler()).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if recorder.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected nosniff header")
	}
	if recorder.Header().Get("Content-Security-Policy") == "" {
		t.Error("expected CSP header")
	}
}
