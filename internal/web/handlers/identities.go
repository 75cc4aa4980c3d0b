package handlers

import (
	"net/http"

	"github.com/kozaktomas/facewatch/internal/recognition"
)

// IdentitySource provides the loaded gallery.
type IdentitySource interface {
	Identities() []recognition.Identity
}

// IdentitiesHandler lists the loaded identities.
type IdentitiesHandler struct {
	gallery IdentitySource
}

func NewIdentitiesHandler(gallery IdentitySource) *IdentitiesHandler {
	return &IdentitiesHandler{gallery: gallery}
}

type identityResponse struct {
	Name      string   `json:"name"`
	Encodings int      `json:"encodings"`
	Files     []string `json:"files"`
}

// List returns every identity with its encoding count and source files.
func (h *IdentitiesHandler) List(w http.ResponseWriter, _ *http.Request) {
	identities := h.gallery.Identities()
	resp := make([]identityResponse, 0, len(identities))
	for _, id := range identities {
		files := make([]string, 0, len(id.Encodings))
		for _, e := range id.Encodings {
			files = append(files, e.Filename)
		}
		resp = append(resp, identityResponse{
			Name:      id.Name,
			Encodings: len(id.Encodings),
			Files:     files,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"identities": resp,
		"count":      len(resp),
	})
}
