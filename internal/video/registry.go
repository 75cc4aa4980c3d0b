// Package video stores uploaded videos for a limited time and streams them
// back frame by frame with faces annotated.
package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	ErrNotFound    = errors.New("video not found")
	ErrExpired     = errors.New("video expired")
	ErrInvalidName = errors.New("invalid video file name")
)

// Registry tracks uploaded video files by path together with their upload time.
type Registry struct {
	dir       string
	retention time.Duration
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]time.Time
}

func NewRegistry(dir string, retention time.Duration) *Registry {
	return &Registry{
		dir:       dir,
		retention: retention,
		now:       time.Now,
		sessions:  make(map[string]time.Time),
	}
}

// SanitizeName reduces an uploaded file name to a safe base name.
func SanitizeName(name string) (string, error) {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, name)
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "", ErrInvalidName
	}
	return name, nil
}

// Path returns the storage path for a sanitized name.
func (r *Registry) Path(name string) string {
	return filepath.Join(r.dir, name)
}

// Save writes the upload to disk and records its timestamp. Re-uploading a
// name overwrites both the file and the timestamp. It returns the sanitized name.
func (r *Registry) Save(name string, src io.Reader) (string, error) {
	name, err := SanitizeName(name)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload dir: %w", err)
	}

	path := r.Path(name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", name, err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing %s: %w", name, err)
	}

	r.Record(path)
	return name, nil
}

// Record sets the upload timestamp of path to now.
func (r *Registry) Record(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[path] = r.now()
}

// Check returns the path for name if it may still be streamed. An expired
// video is deleted from disk and forgotten before ErrExpired is returned.
func (r *Registry) Check(name string) (string, error) {
	clean, err := SanitizeName(name)
	if err != nil || clean != name {
		return "", ErrNotFound
	}
	path := r.Path(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	uploaded, ok := r.sessions[path]
	if !ok {
		return "", ErrNotFound
	}
	if _, err := os.Stat(path); err != nil {
		delete(r.sessions, path)
		return "", ErrNotFound
	}
	if r.now().Sub(uploaded) > r.retention {
		r.removeLocked(path)
		return "", ErrExpired
	}
	return path, nil
}

func (r *Registry) removeLocked(path string) {
	delete(r.sessions, path)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithError(err).WithField("path", path).Warn("Failed to delete expired video")
	}
}

// Sweep deletes every expired video and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for path, uploaded := range r.sessions {
		if now.Sub(uploaded) > r.retention {
			r.removeLocked(path)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked videos.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// RunJanitor sweeps expired videos every interval until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				log.WithField("removed", n).Info("Expired videos removed")
			}
		}
	}
}
