package gallery

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/facewatch/internal/constants"
	"github.com/kozaktomas/facewatch/internal/database"
	"github.com/kozaktomas/facewatch/internal/recognition"
)

// Object is a gallery image: <prefix><person>/<filename>.
type Object struct {
	Name     string
	Person   string
	Filename string
}

// ProgressFunc is called after every processed object.
type ProgressFunc func(done, total int)

// Loader fills a Store from an ObjectStore once per process.
type Loader struct {
	objects  ObjectStore
	prefix   string
	detector recognition.Detector
	store    *Store
	cache    database.EncodingWriter // optional
	model    string                  // identifies the embeddings in cache; empty disables cache reads

	retryBackoff time.Duration
	now          func() time.Time

	mu       sync.Mutex
	loaded   bool
	lastErr  error
	failedAt time.Time
}

// NewLoader creates a loader. cache may be nil.
func NewLoader(objects ObjectStore, prefix string, detector recognition.Detector, store *Store, cache database.EncodingWriter) *Loader {
	return &Loader{
		objects:  objects,
		prefix:   normalizePrefix(prefix),
		detector: detector,
		store:    store,
		cache:    cache,

		retryBackoff: constants.GalleryRetryBackoff,
		now:          time.Now,
	}
}

// WithModel sets the recognizer identity stored with cached encodings. Cached
// rows computed by another model are recomputed.
func (l *Loader) WithModel(model string) *Loader {
	l.model = model
	return l
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimPrefix(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

// EnsureLoaded loads the gallery on the first call. Concurrent callers wait
// for that load; later calls return immediately. A failed load leaves the
// store empty. Calls within the retry backoff return the last error without
// touching the object store.
func (l *Loader) EnsureLoaded(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded {
		return nil
	}
	if l.lastErr != nil && l.now().Sub(l.failedAt) < l.retryBackoff {
		return l.lastErr
	}

	identities, err := l.Fetch(ctx, nil)
	if err != nil {
		log.WithError(err).WithField("retry_in", l.retryBackoff).
			Error("Failed to load known faces, continuing with an empty gallery")
		l.store.Set(nil)
		l.lastErr = err
		l.failedAt = l.now()
		return err
	}

	l.store.Set(identities)
	l.loaded = true
	l.lastErr = nil

	encodings := 0
	for _, id := range identities {
		encodings += len(id.Encodings)
	}
	log.WithFields(log.Fields{
		"identities": len(identities),
		"encodings":  encodings,
	}).Info("Known faces loaded")
	return nil
}

// Loaded reports whether a load has succeeded.
func (l *Loader) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// ListObjects returns the gallery images in listing order. Objects that are
// not JPEG files nested exactly one level below the prefix are ignored.
func (l *Loader) ListObjects(ctx context.Context) ([]Object, error) {
	names, err := l.objects.List(ctx, l.prefix)
	if err != nil {
		return nil, err
	}

	var objects []Object
	for _, name := range names {
		if obj, ok := parseObject(l.prefix, name); ok {
			objects = append(objects, obj)
		}
	}
	return objects, nil
}

func parseObject(prefix, name string) (Object, bool) {
	rel, ok := strings.CutPrefix(name, prefix)
	if !ok {
		return Object{}, false
	}
	person, filename, ok := strings.Cut(rel, "/")
	if !ok || person == "" || filename == "" || strings.Contains(filename, "/") {
		return Object{}, false
	}
	switch strings.ToLower(path.Ext(filename)) {
	case ".jpg", ".jpeg":
	default:
		return Object{}, false
	}
	return Object{Name: name, Person: person, Filename: filename}, true
}

// Fetch computes the identities from the object store without touching the
// Store. Identities keep the order in which they first appear in the listing.
func (l *Loader) Fetch(ctx context.Context, progress ProgressFunc) ([]recognition.Identity, error) {
	objects, err := l.ListObjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing gallery: %w", err)
	}

	var identities []recognition.Identity
	index := make(map[string]int)
	dim := 0 // length of the first embedding, every other one must agree

	for i, obj := range objects {
		emb, err := l.encode(ctx, obj, dim)
		if progress != nil {
			progress(i+1, len(objects))
		}
		if errors.Is(err, recognition.ErrNoFace) {
			log.WithField("object", obj.Name).Warn("No face found in gallery image, skipping")
			continue
		}
		if err != nil {
			return nil, err
		}
		if dim == 0 {
			dim = len(emb)
		}

		idx, ok := index[obj.Person]
		if !ok {
			idx = len(identities)
			index[obj.Person] = idx
			identities = append(identities, recognition.Identity{Name: obj.Person})
		}
		identities[idx].Encodings = append(identities[idx].Encodings, recognition.KnownEncoding{
			Embedding: emb,
			Filename:  obj.Filename,
		})
	}

	if l.cache != nil {
		keep := make([]string, 0, len(objects))
		for _, obj := range objects {
			keep = append(keep, obj.Name)
		}
		if removed, err := l.cache.DeleteMissing(ctx, keep); err != nil {
			log.WithError(err).Warn("Failed to prune encoding cache")
		} else if removed > 0 {
			log.WithField("removed", removed).Info("Pruned stale cached encodings")
		}
	}

	return identities, nil
}

// encode returns the embedding of the first face in obj, consulting the cache
// first. dim is the expected embedding length, zero when not yet known.
func (l *Loader) encode(ctx context.Context, obj Object, dim int) (recognition.Embedding, error) {
	if l.cache != nil && l.model != "" {
		cached, err := l.cache.Get(ctx, obj.Name)
		if err != nil {
			log.WithError(err).WithField("object", obj.Name).Warn("Encoding cache lookup failed")
		} else if cached != nil {
			if l.usable(cached, dim) {
				return cached.Embedding, nil
			}
			log.WithFields(log.Fields{
				"object": obj.Name,
				"model":  cached.Model,
				"dim":    len(cached.Embedding),
			}).Debug("Cached encoding does not fit the current recognizer, recomputing")
		}
	}

	data, err := l.objects.Read(ctx, obj.Name)
	if err != nil {
		return nil, err
	}

	faces, err := l.detector.Detect(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", obj.Name, err)
	}
	if len(faces) == 0 {
		return nil, recognition.ErrNoFace
	}
	emb := faces[0].Embedding

	if l.cache != nil {
		err := l.cache.Save(ctx, database.StoredEncoding{
			ObjectName: obj.Name,
			Person:     obj.Person,
			Filename:   obj.Filename,
			Embedding:  emb,
			Dim:        len(emb),
			Model:      l.model,
		})
		if err != nil {
			log.WithError(err).WithField("object", obj.Name).Warn("Failed to cache encoding")
		}
	}
	return emb, nil
}

// usable reports whether a cached encoding was produced by the current model
// and has the expected length.
func (l *Loader) usable(enc *database.StoredEncoding, dim int) bool {
	n := len(enc.Embedding)
	if enc.Model != l.model || n == 0 || n != enc.Dim {
		return false
	}
	return dim == 0 || n == dim
}
