package recognition

import (
	"math/rand/v2"
	"testing"

	"github.com/kozaktomas/facewatch/internal/constants"
)

// vec returns a 128-dim embedding that is zero except for the first component.
func vec(x float32) Embedding {
	e := make(Embedding, constants.EmbeddingDim)
	e[0] = x
	return e
}

func identity(name string, embeddings ...Embedding) Identity {
	id := Identity{Name: name}
	for i, e := range embeddings {
		id.Encodings = append(id.Encodings, KnownEncoding{Embedding: e, Filename: name + string(rune('a'+i)) + ".jpg"})
	}
	return id
}

func TestMatcher_Match(t *testing.T) {
	gallery := []Identity{
		identity("alice", vec(0.0), vec(5.0)),
		identity("bob", vec(1.0)),
	}

	tests := []struct {
		name     string
		query    Embedding
		wantName string
		wantDist float64
	}{
		{"exact alice", vec(0.0), "alice", 0},
		{"close to bob", vec(0.9), "bob", 0.1},
		{"alice second encoding", vec(5.25), "alice", 0.25},
		{"far from everyone", vec(3.0), constants.UnknownName, 0.4},
		{"between identities", vec(0.5), constants.UnknownName, 0.4},
		{"dimension mismatch", Embedding{0}, constants.UnknownName, 0.4},
		{"empty query", Embedding{}, constants.UnknownName, 0.4},
	}

	m := NewMatcher(0.4)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			name, dist := m.Match(tc.query, gallery)
			if name != tc.wantName {
				t.Errorf("Match() name = %q, want %q", name, tc.wantName)
			}
			if diff := dist - tc.wantDist; diff > 1e-5 || diff < -1e-5 {
				t.Errorf("Match() distance = %f, want %f", dist, tc.wantDist)
			}
		})
	}
}

func TestMatcher_TieKeepsFirstIdentity(t *testing.T) {
	gallery := []Identity{
		identity("first", vec(0.1)),
		identity("second", vec(-0.1)),
	}

	name, _ := NewMatcher(0.4).Match(vec(0), gallery)
	if name != "first" {
		t.Errorf("expected tie to keep 'first', got %q", name)
	}
}

func TestMatcher_ThresholdIsExclusive(t *testing.T) {
	gallery := []Identity{identity("bob", vec(1.0))}

	name, dist := NewMatcher(0.5).Match(vec(1.5), gallery)
	if name != constants.UnknownName || dist != 0.5 {
		t.Errorf("distance equal to threshold must be Unknown, got %q %f", name, dist)
	}
}

func TestMatcher_EmptyGallery(t *testing.T) {
	name, dist := NewMatcher(0.4).Match(vec(0), nil)
	if name != constants.UnknownName || dist != 0.4 {
		t.Errorf("expected Unknown at threshold, got %q %f", name, dist)
	}
}

func TestNewMatcher_DefaultThreshold(t *testing.T) {
	if got := NewMatcher(0).Threshold(); got != constants.DefaultMatchThreshold {
		t.Errorf("expected default threshold %f, got %f", constants.DefaultMatchThreshold, got)
	}
}

func TestMatcher_NeverLabelsAboveThreshold(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	randomVec := func() Embedding {
		e := make(Embedding, constants.EmbeddingDim)
		for i := range e {
			e[i] = float32(r.NormFloat64() * 0.05)
		}
		return e
	}

	var gallery []Identity
	for i := range 20 {
		gallery = append(gallery, identity(string(rune('A'+i)), randomVec(), randomVec()))
	}

	m := NewMatcher(0.4)
	for range 500 {
		name, dist := m.Match(randomVec(), gallery)
		if name != constants.UnknownName && dist >= 0.4 {
			t.Fatalf("identity %q returned with distance %f at or above threshold", name, dist)
		}
		if name == constants.UnknownName && dist != 0.4 {
			t.Fatalf("Unknown returned with distance %f, want threshold", dist)
		}
	}
}
