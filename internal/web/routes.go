package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/facewatch/internal/web/handlers"
	"github.com/kozaktomas/facewatch/internal/web/middleware"
	"github.com/kozaktomas/facewatch/internal/web/static"
)

func (s *Server) setupRoutes() {
	web := &s.config.Web
	maxUpload := s.config.Video.MaxUploadSize

	healthHandler := handlers.NewHealthHandler(s.deps.Gallery)
	identitiesHandler := handlers.NewIdentitiesHandler(s.deps.Gallery)
	imageHandler := handlers.NewImageHandler(s.deps.Recognizer, maxUpload)
	videoHandler := handlers.NewVideoHandler(s.deps.Videos, s.deps.Streamer, maxUpload)
	liveHandler := handlers.NewLiveHandler(s.deps.Live)
	eventsHandler := handlers.NewEventsHandler(s.deps.Hub, middleware.CheckOrigin(web))

	s.router.Use(middleware.CORS(web))

	// Short-lived requests
	s.router.Group(func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(5 * time.Minute))

		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/api/identities", identitiesHandler.List)
		r.Post("/start_video_feed", liveHandler.Start)
		r.Post("/stop_video_feed", liveHandler.Stop)
		r.Post("/upload_video", videoHandler.Upload)

		r.With(ensureGallery(s.deps.Loader)).Post("/upload_image", imageHandler.Upload)
	})

	// Streams
	s.router.Group(func(r chi.Router) {
		r.Use(ensureGallery(s.deps.Loader))

		r.Get("/stream_video/{name}", videoHandler.Stream)
		r.Get("/video_feed", liveHandler.Feed)
	})
	s.router.Get("/ws", eventsHandler.WebSocket)
	s.router.Get("/events", eventsHandler.SSE)

	// Page
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.SecurityHeaders())
		r.Get("/", serveIndex)
		r.Handle("/static/*", http.StripPrefix("/static", http.FileServer(static.GetFileSystem())))
	})
}

// serveIndex serves the embedded upload and live-feed page.
func serveIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(static.Index())
}
