package gallery

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kozaktomas/facewatch/internal/database"
	"github.com/kozaktomas/facewatch/internal/database/mock"
	"github.com/kozaktomas/facewatch/internal/recognition"
)

type memObjects struct {
	data      map[string][]byte
	order     []string
	listErr   error
	listCalls atomic.Int32
}

func newMemObjects(names ...string) *memObjects {
	m := &memObjects{data: make(map[string][]byte)}
	for _, n := range names {
		m.order = append(m.order, n)
		m.data[n] = []byte(n)
	}
	return m
}

func (m *memObjects) List(_ context.Context, _ string) ([]string, error) {
	m.listCalls.Add(1)
	return m.order, m.listErr
}

func (m *memObjects) Read(_ context.Context, name string) ([]byte, error) {
	d, ok := m.data[name]
	if !ok {
		return nil, errors.New("not found")
	}
	return d, nil
}

func (m *memObjects) Close() error { return nil }

// nameDetector returns one face per image whose embedding is derived from the
// image bytes; images listed in noFace yield no faces.
type nameDetector struct {
	noFace map[string]bool
	calls  atomic.Int32
}

func (d *nameDetector) Detect(_ context.Context, data []byte) ([]recognition.DetectedFace, error) {
	d.calls.Add(1)
	if d.noFace[string(data)] {
		return nil, nil
	}
	return []recognition.DetectedFace{
		{Box: image.Rect(0, 0, 1, 1), Embedding: recognition.Embedding{float32(len(data))}},
		{Box: image.Rect(0, 0, 2, 2), Embedding: recognition.Embedding{-1}},
	}, nil
}

func (d *nameDetector) Close() error { return nil }

func TestParseObject(t *testing.T) {
	tests := []struct {
		name   string
		object string
		want   Object
		ok     bool
	}{
		{"jpg", "known_people/alice/1.jpg", Object{"known_people/alice/1.jpg", "alice", "1.jpg"}, true},
		{"uppercase jpeg", "known_people/bob/a.JPEG", Object{"known_people/bob/a.JPEG", "bob", "a.JPEG"}, true},
		{"png ignored", "known_people/alice/1.png", Object{}, false},
		{"top level file", "known_people/readme.jpg", Object{}, false},
		{"too deep", "known_people/alice/old/1.jpg", Object{}, false},
		{"folder marker", "known_people/alice/", Object{}, false},
		{"other prefix", "other/alice/1.jpg", Object{}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseObject("known_people/", tc.object)
			if ok != tc.ok || got != tc.want {
				t.Errorf("parseObject(%q) = %+v, %v; want %+v, %v", tc.object, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestNormalizePrefix(t *testing.T) {
	tests := map[string]string{
		"known_people":   "known_people/",
		"known_people/":  "known_people/",
		"/known_people/": "known_people/",
		"":               "",
	}
	for in, want := range tests {
		if got := normalizePrefix(in); got != want {
			t.Errorf("normalizePrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoader_EnsureLoaded(t *testing.T) {
	objects := newMemObjects(
		"known_people/bob/1.jpg",
		"known_people/alice/1.jpg",
		"known_people/bob/22.jpg",
		"known_people/carol/blank.jpg",
		"known_people/notes.txt",
	)
	det := &nameDetector{noFace: map[string]bool{"known_people/carol/blank.jpg": true}}
	store := NewStore()
	loader := NewLoader(objects, "known_people", det, store, nil)

	if err := loader.EnsureLoaded(context.Background()); err != nil {
		t.Fatalf("EnsureLoaded() error: %v", err)
	}

	ids := store.Identities()
	if len(ids) != 2 {
		t.Fatalf("expected 2 identities (carol has no face), got %d", len(ids))
	}
	if ids[0].Name != "bob" || ids[1].Name != "alice" {
		t.Errorf("expected listing order [bob alice], got [%s %s]", ids[0].Name, ids[1].Name)
	}
	if len(ids[0].Encodings) != 2 {
		t.Fatalf("expected 2 encodings for bob, got %d", len(ids[0].Encodings))
	}
	if ids[0].Encodings[1].Filename != "22.jpg" {
		t.Errorf("unexpected filename %q", ids[0].Encodings[1].Filename)
	}
	// First face only.
	if ids[0].Encodings[0].Embedding[0] == -1 {
		t.Error("expected the first detected face to be used")
	}
	if !loader.Loaded() {
		t.Error("expected Loaded() after success")
	}
}

func TestLoader_EnsureLoadedOnce(t *testing.T) {
	objects := newMemObjects("known_people/alice/1.jpg")
	loader := NewLoader(objects, "known_people/", &nameDetector{}, NewStore(), nil)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loader.EnsureLoaded(context.Background())
		}()
	}
	wg.Wait()

	if n := objects.listCalls.Load(); n != 1 {
		t.Errorf("expected gallery to be listed once, got %d", n)
	}
}

func TestLoader_FailureLeavesStoreEmptyAndRetries(t *testing.T) {
	objects := newMemObjects("known_people/alice/1.jpg")
	objects.listErr = errors.New("bucket unavailable")
	store := NewStore()
	store.Set([]recognition.Identity{{Name: "stale"}})
	loader := NewLoader(objects, "known_people/", &nameDetector{}, store, nil)

	if err := loader.EnsureLoaded(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if store.Count() != 0 {
		t.Errorf("expected empty store after failure, got %d", store.Count())
	}
	if loader.Loaded() {
		t.Error("failed load must not be marked loaded")
	}

	objects.listErr = nil
	loader.now = func() time.Time { return time.Now().Add(loader.retryBackoff) }
	if err := loader.EnsureLoaded(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if store.Count() != 1 {
		t.Errorf("expected 1 identity after retry, got %d", store.Count())
	}
}

func TestLoader_UsesCache(t *testing.T) {
	objects := newMemObjects("known_people/alice/1.jpg", "known_people/bob/1.jpg")
	cache := mock.NewMockEncodingStore()
	cache.AddEncoding(database.StoredEncoding{
		ObjectName: "known_people/alice/1.jpg",
		Person:     "alice",
		Embedding:  []float32{42},
		Dim:        1,
		Model:      "dlib",
	})
	cache.AddEncoding(database.StoredEncoding{ObjectName: "known_people/carol/gone.jpg", Person: "carol"})
	det := &nameDetector{}
	loader := NewLoader(objects, "known_people/", det, NewStore(), cache).WithModel("dlib")

	ids, err := loader.Fetch(context.Background(), nil)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if det.calls.Load() != 1 {
		t.Errorf("expected detector to run only for the uncached image, ran %d times", det.calls.Load())
	}
	if ids[0].Encodings[0].Embedding[0] != 42 {
		t.Errorf("expected cached embedding, got %v", ids[0].Encodings[0].Embedding)
	}
	saved, _ := cache.Get(context.Background(), "known_people/bob/1.jpg")
	if saved == nil || saved.Model != "dlib" || saved.Dim != 1 {
		t.Errorf("expected computed encoding to be written back with its model, got %+v", saved)
	}
	if len(cache.LastKeep()) != 2 {
		t.Errorf("expected prune with 2 live objects, got %v", cache.LastKeep())
	}
	if cache.Has("known_people/carol/gone.jpg") {
		t.Error("expected stale encoding to be pruned")
	}
}

func TestLoader_CacheErrorsAreNotFatal(t *testing.T) {
	objects := newMemObjects("known_people/alice/1.jpg")
	cache := mock.NewMockEncodingStore()
	cache.GetError = errors.New("connection refused")
	cache.DeleteMissingError = errors.New("connection refused")
	det := &nameDetector{}

	ids, err := NewLoader(objects, "known_people/", det, NewStore(), cache).WithModel("dlib").Fetch(context.Background(), nil)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(ids) != 1 || det.calls.Load() != 1 {
		t.Errorf("expected the image to be encoded despite cache errors, got %d identities", len(ids))
	}
}

func TestLoader_FetchProgress(t *testing.T) {
	objects := newMemObjects("known_people/a/1.jpg", "known_people/b/1.jpg", "known_people/c/1.jpg")
	loader := NewLoader(objects, "known_people/", &nameDetector{}, NewStore(), nil)

	var last, total int
	_, err := loader.Fetch(context.Background(), func(done, n int) { last, total = done, n })
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if last != 3 || total != 3 {
		t.Errorf("expected progress 3/3, got %d/%d", last, total)
	}
}

func TestLoader_RecomputesCachedEncodingsThatDoNotFit(t *testing.T) {
	const alice = "known_people/alice/a.jpg"
	fresh := float32(len(alice)) // what nameDetector computes for alice

	tests := []struct {
		name    string
		model   string
		objects []string
		cached  database.StoredEncoding
	}{
		{
			name:    "no model configured",
			objects: []string{alice},
			cached:  database.StoredEncoding{ObjectName: alice, Person: "alice", Embedding: []float32{0.4, 0}, Dim: 2},
		},
		{
			name:    "other model",
			model:   "remote http://embed",
			objects: []string{alice},
			cached:  database.StoredEncoding{ObjectName: alice, Person: "alice", Embedding: []float32{0.4, 0}, Dim: 2, Model: "dlib"},
		},
		{
			name:    "dim disagrees with vector",
			model:   "dlib",
			objects: []string{alice},
			cached:  database.StoredEncoding{ObjectName: alice, Person: "alice", Embedding: []float32{0.4, 0}, Dim: 1, Model: "dlib"},
		},
		{
			name:    "empty vector",
			model:   "dlib",
			objects: []string{alice},
			cached:  database.StoredEncoding{ObjectName: alice, Person: "alice", Model: "dlib"},
		},
		{
			name:    "length differs from fresh encodings",
			model:   "dlib",
			objects: []string{"known_people/bob/1.jpg", alice},
			cached:  database.StoredEncoding{ObjectName: alice, Person: "alice", Embedding: []float32{0.4, 0}, Dim: 2, Model: "dlib"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cache := mock.NewMockEncodingStore()
			cache.AddEncoding(tc.cached)
			store := NewStore()
			loader := NewLoader(newMemObjects(tc.objects...), "known_people/", &nameDetector{}, store, cache).WithModel(tc.model)

			if err := loader.EnsureLoaded(context.Background()); err != nil {
				t.Fatalf("EnsureLoaded() error: %v", err)
			}

			var got recognition.Embedding
			for _, id := range store.Identities() {
				if id.Name == "alice" {
					got = id.Encodings[0].Embedding
				}
			}
			if len(got) != 1 || got[0] != fresh {
				t.Fatalf("expected freshly computed embedding [%v], got %v", fresh, got)
			}

			if name, _ := recognition.NewMatcher(0.4).Match(got, store.Identities()); name != "alice" {
				t.Errorf("expected the gallery photo to match alice, got %q", name)
			}

			saved, _ := cache.Get(context.Background(), alice)
			if saved == nil || len(saved.Embedding) != 1 || saved.Model != tc.model {
				t.Errorf("expected cache entry to be replaced, got %+v", saved)
			}
		})
	}
}

func TestLoader_RetryBackoff(t *testing.T) {
	objects := newMemObjects("known_people/alice/1.jpg")
	objects.listErr = errors.New("bucket unavailable")
	loader := NewLoader(objects, "known_people/", &nameDetector{}, NewStore(), nil)

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	loader.now = func() time.Time { return clock }
	loader.retryBackoff = 30 * time.Second

	steps := []struct {
		advance   time.Duration
		listErr   error
		wantErr   bool
		wantLists int32
	}{
		{0, objects.listErr, true, 1},
		{time.Second, nil, true, 1}, // store recovered but still inside the backoff
		{28 * time.Second, nil, true, 1},
		{time.Second, objects.listErr, true, 2},
		{31 * time.Second, nil, false, 3},
		{0, nil, false, 3},
	}

	for i, s := range steps {
		clock = clock.Add(s.advance)
		objects.listErr = s.listErr
		err := loader.EnsureLoaded(context.Background())
		if (err != nil) != s.wantErr {
			t.Errorf("step %d: EnsureLoaded() error = %v, wantErr %v", i, err, s.wantErr)
		}
		if n := objects.listCalls.Load(); n != s.wantLists {
			t.Errorf("step %d: gallery listed %d times, want %d", i, n, s.wantLists)
		}
	}
}
