package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/facewatch/internal/config"
	"github.com/kozaktomas/facewatch/internal/events"
	"github.com/kozaktomas/facewatch/internal/recognition"
	"github.com/kozaktomas/facewatch/internal/web/handlers"
)

// GalleryLoader loads the known identities on demand.
type GalleryLoader interface {
	EnsureLoaded(ctx context.Context) error
}

// Gallery is the loaded identity set.
type Gallery interface {
	Identities() []recognition.Identity
	Count() int
}

// Deps are the components the HTTP layer serves.
type Deps struct {
	Recognizer handlers.FaceRecognizer
	Gallery    Gallery
	Loader     GalleryLoader
	Videos     handlers.VideoStore
	Streamer   handlers.VideoStreamer
	Live       handlers.LiveFeed
	Hub        *events.Hub
}

// Server represents the web server
type Server struct {
	config     *config.Config
	deps       Deps
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, deps Deps) *Server {
	r := chi.NewRouter()

	s := &Server{
		config: cfg,
		deps:   deps,
		router: r,
	}

	// Set up middleware stack. Timeouts are applied per route group because
	// the streaming endpoints stay open indefinitely.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute, // large uploads
		WriteTimeout:      5 * time.Minute, // streams clear their own deadline
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.WithField("addr", s.httpServer.Addr).Info("Starting web server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info("Shutting down web server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}

// ensureGallery retries a failed gallery load before recognition requests.
// A load failure is logged by the loader and the request is served with
// whatever identities are present.
func ensureGallery(loader GalleryLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if loader != nil {
				_ = loader.EnsureLoaded(r.Context())
			}
			next.ServeHTTP(w, r)
		})
	}
}
