// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Recognition constants
const (
	// UnknownName is the label given to faces that match no known identity
	UnknownName = "Unknown"

	// DefaultMatchThreshold is the maximum (exclusive) Euclidean distance accepted as a match
	// Lower values = stricter matching
	DefaultMatchThreshold = 0.4

	// EmbeddingDim is the length of a dlib face descriptor
	EmbeddingDim = 128
)

// Gallery constants
const (
	// GalleryRetryBackoff is how long a failed gallery load is reported
	// without contacting the object store again
	GalleryRetryBackoff = 30 * time.Second
)

// Streaming constants
const (
	// StreamBoundary is the multipart boundary used by every MJPEG stream
	StreamBoundary = "frame"

	// JPEGQuality is the quality of annotated frames and images
	JPEGQuality = 90
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for push channel listeners
	EventChannelBuffer = 100
)

// Push channel event names
const (
	EventConnect           = "connect"
	EventDisconnect        = "disconnect"
	EventResponse          = "response"
	EventPersonsRecognized = "persons_recognized"
)

// Form field names
const (
	ImageFormField = "imageFile"
	VideoFormField = "videoFile"
)
