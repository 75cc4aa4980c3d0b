package gallery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// ObjectStore lists and reads gallery images by slash-separated object name.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Read(ctx context.Context, name string) ([]byte, error)
	Close() error
}

// LocalStore serves objects from a directory tree. Object names are paths
// relative to the root using forward slashes.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	// Walk only the directory that can contain matches.
	start := s.root
	if dir := path.Dir(prefix + "x"); dir != "." {
		start = filepath.Join(s.root, filepath.FromSlash(dir))
	}
	if _, err := os.Stat(start); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var names []string
	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.root, err)
	}
	slices.Sort(names)
	return names, nil
}

func (s *LocalStore) Read(_ context.Context, name string) ([]byte, error) {
	clean := path.Clean("/" + name)
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(clean)))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

func (s *LocalStore) Close() error { return nil }
