package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondErrorDetails sends an error response carrying the underlying error text.
func respondErrorDetails(w http.ResponseWriter, status int, message string, err error) {
	resp := errorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	respondJSON(w, status, resp)
}

// IdentityCounter reports how many identities are loaded.
type IdentityCounter interface {
	Count() int
}

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	gallery IdentityCounter
	now     func() time.Time
}

func NewHealthHandler(gallery IdentityCounter) *HealthHandler {
	return &HealthHandler{gallery: gallery, now: time.Now}
}

// HealthCheck handles the health check endpoint.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"timestamp":        h.now().UTC().Format(time.RFC3339),
		"known_identities": h.gallery.Count(),
	})
}
