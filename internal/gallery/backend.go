package gallery

import (
	"context"
	"fmt"

	"github.com/kozaktomas/facewatch/internal/config"
)

// Backends supported by Open.
const (
	BackendGCS   = "gcs"
	BackendS3    = "s3"
	BackendLocal = "local"
)

// Open creates the object store selected by cfg.Backend.
func Open(ctx context.Context, cfg *config.GalleryConfig) (ObjectStore, error) {
	switch cfg.Backend {
	case BackendGCS:
		return NewGCSStore(ctx, cfg.Bucket, cfg.CredentialsFile)
	case BackendS3:
		return NewS3Store(ctx, cfg.Bucket, cfg.Region)
	case BackendLocal:
		return NewLocalStore(cfg.Dir), nil
	default:
		return nil, fmt.Errorf("unknown gallery backend %q", cfg.Backend)
	}
}
