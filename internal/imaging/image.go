// Package imaging decodes uploaded images and encodes annotated output.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/kozaktomas/facewatch/internal/constants"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrEmptyImage is returned when a decode is attempted on an empty buffer.
var ErrEmptyImage = errors.New("empty image data")

// Decode decodes JPEG, PNG, GIF, BMP, TIFF or WebP data.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// EncodeJPEG encodes an image as JPEG with the shared quality setting.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// AsJPEG returns data unchanged when it is already JPEG, otherwise decodes and re-encodes it.
// The dlib recognizer only accepts JPEG input.
func AsJPEG(data []byte) ([]byte, error) {
	if IsJPEG(data) {
		return data, nil
	}
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return EncodeJPEG(img)
}

// IsJPEG checks the JPEG magic bytes (FF D8 FF).
func IsJPEG(data []byte) bool {
	return len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF
}
