package cmd

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/facewatch/internal/config"
	"github.com/kozaktomas/facewatch/internal/database"
	"github.com/kozaktomas/facewatch/internal/database/postgres"
	"github.com/kozaktomas/facewatch/internal/gallery"
	"github.com/kozaktomas/facewatch/internal/recognition"
	"github.com/kozaktomas/facewatch/internal/recognition/dlib"
	"github.com/kozaktomas/facewatch/internal/recognition/remote"
)

// Recognizer backends.
const (
	recognizerDlib   = "dlib"
	recognizerRemote = "remote"
)

// newDetector creates the face detector selected by RECOGNIZER.
func newDetector(cfg *config.RecognitionConfig) (recognition.Detector, error) {
	switch cfg.Backend {
	case recognizerDlib:
		d, err := dlib.New(cfg.ModelsDir)
		if err != nil {
			return nil, err
		}
		return d, nil
	case recognizerRemote:
		return remote.NewClient(cfg.EmbeddingURL), nil
	default:
		return nil, fmt.Errorf("unknown recognizer %q", cfg.Backend)
	}
}

// detectorModel names the embeddings a detector produces. Cached encodings
// from any other model are recomputed.
func detectorModel(cfg *config.RecognitionConfig) string {
	if cfg.Backend == recognizerRemote {
		return recognizerRemote + " " + cfg.EmbeddingURL
	}
	return cfg.Backend
}

// openCache connects the PostgreSQL embedding cache when DATABASE_URL is set.
// It returns nil without error when no database is configured.
func openCache(ctx context.Context, cfg *config.DatabaseConfig) (database.EncodingWriter, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	log.Info("Connecting to PostgreSQL embedding cache")
	if err := postgres.Initialize(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return database.GetEncodingWriter(ctx)
}

// galleryRuntime bundles what every command touching the gallery needs.
type galleryRuntime struct {
	detector recognition.Detector
	objects  gallery.ObjectStore
	cache    database.EncodingWriter
	store    *gallery.Store
	model    string
	loader   *gallery.Loader
}

func openGalleryRuntime(ctx context.Context, cfg *config.Config) (*galleryRuntime, error) {
	detector, err := newDetector(&cfg.Recognition)
	if err != nil {
		return nil, fmt.Errorf("creating face detector: %w", err)
	}

	objects, err := gallery.Open(ctx, &cfg.Gallery)
	if err != nil {
		detector.Close()
		return nil, fmt.Errorf("opening gallery: %w", err)
	}

	cache, err := openCache(ctx, &cfg.Database)
	if err != nil {
		objects.Close()
		detector.Close()
		return nil, err
	}

	store := gallery.NewStore()
	model := detectorModel(&cfg.Recognition)
	return &galleryRuntime{
		detector: detector,
		objects:  objects,
		cache:    cache,
		store:    store,
		model:    model,
		loader:   gallery.NewLoader(objects, cfg.Gallery.Prefix, detector, store, cache).WithModel(model),
	}, nil
}

func (g *galleryRuntime) Close() {
	if err := g.objects.Close(); err != nil {
		log.WithError(err).Warn("Failed to close gallery object store")
	}
	if err := g.detector.Close(); err != nil {
		log.WithError(err).Warn("Failed to close face detector")
	}
	if err := postgres.Shutdown(); err != nil {
		log.WithError(err).Warn("Failed to close database")
	}
}
