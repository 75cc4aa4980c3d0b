package recognition

import (
	"github.com/coder/hnsw"
	"github.com/kozaktomas/facewatch/internal/constants"
)

// Matcher picks the closest known identity for an embedding.
type Matcher struct {
	threshold float64
	distance  hnsw.DistanceFunc
}

// NewMatcher creates a matcher using Euclidean distance.
// A non-positive threshold falls back to constants.DefaultMatchThreshold.
func NewMatcher(threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = constants.DefaultMatchThreshold
	}
	return &Matcher{
		threshold: threshold,
		distance:  hnsw.EuclideanDistance,
	}
}

// Threshold returns the maximum (exclusive) accepted distance.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match scans every known encoding and returns the identity with the smallest
// distance strictly below the threshold, or UnknownName and the threshold itself.
// On equal distances the identity seen first wins.
func (m *Matcher) Match(embedding Embedding, identities []Identity) (string, float64) {
	bestName := constants.UnknownName
	bestDistance := m.threshold

	for _, identity := range identities {
		for _, known := range identity.Encodings {
			if len(known.Embedding) != len(embedding) || len(embedding) == 0 {
				continue
			}
			d := float64(m.distance(known.Embedding, embedding))
			if d < bestDistance {
				bestDistance = d
				bestName = identity.Name
			}
		}
	}

	return bestName, bestDistance
}
