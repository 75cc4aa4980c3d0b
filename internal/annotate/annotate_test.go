package annotate

import (
	"image"
	"image/color"
	"testing"

	"github.com/kozaktomas/facewatch/internal/constants"
	"github.com/kozaktomas/facewatch/internal/imaging"
	"github.com/kozaktomas/facewatch/internal/recognition"
)

func grayImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	return img
}

func rgbaAt(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}

func TestDraw_Outline(t *testing.T) {
	src := grayImage(100, 100)
	face := recognition.RecognizedFace{Top: 10, Right: 60, Bottom: 70, Left: 20, Name: "alice"}

	out := Draw(src, []recognition.RecognizedFace{face}, Outline)

	if got := rgbaAt(out, 20, 40); got != colorKnown {
		t.Errorf("expected green left edge, got %v", got)
	}
	if got := rgbaAt(out, 40, 10); got != colorKnown {
		t.Errorf("expected green top edge, got %v", got)
	}
	if got := rgbaAt(out, 40, 40); got != (color.RGBA{R: 128, G: 128, B: 128, A: 255}) {
		t.Errorf("expected untouched interior, got %v", got)
	}
	if got := src.RGBAAt(20, 40); got == colorKnown {
		t.Error("Draw must not modify the source image")
	}
}

func TestDraw_BandedUnknownIsRed(t *testing.T) {
	src := grayImage(100, 100)
	face := recognition.RecognizedFace{Top: 10, Right: 90, Bottom: 90, Left: 10, Name: constants.UnknownName}

	out := Draw(src, []recognition.RecognizedFace{face}, Banded)

	if got := rgbaAt(out, 10, 40); got != colorUnknown {
		t.Errorf("expected red edge, got %v", got)
	}
	// Inside the band, right of any label text.
	if got := rgbaAt(out, 85, 60); got != colorUnknown {
		t.Errorf("expected red band, got %v", got)
	}
	if got := rgbaAt(out, 50, 30); got != (color.RGBA{R: 128, G: 128, B: 128, A: 255}) {
		t.Errorf("expected untouched area above the band, got %v", got)
	}
}

func TestDraw_BandedKnownIsGreen(t *testing.T) {
	out := Draw(grayImage(100, 100), []recognition.RecognizedFace{
		{Top: 10, Right: 90, Bottom: 90, Left: 10, Name: "bob"},
	}, Banded)

	if got := rgbaAt(out, 85, 60); got != colorKnown {
		t.Errorf("expected green band, got %v", got)
	}
}

func TestDraw_BoxOutsideImage(t *testing.T) {
	// Must not panic when a box exceeds the frame.
	Draw(grayImage(20, 20), []recognition.RecognizedFace{
		{Top: -5, Right: 50, Bottom: 50, Left: -5, Name: "edge"},
	}, Banded)
}

func TestLabelOrigin(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)
	tests := []struct {
		name  string
		box   image.Rectangle
		width int
		wantX int
		wantY int
	}{
		{"inside", image.Rect(10, 10, 50, 50), 20, 16, 44},
		{"clamped right", image.Rect(80, 10, 99, 50), 40, 60, 44},
		{"wider than image", image.Rect(0, 10, 50, 50), 200, 0, 44},
		{"clamped bottom", image.Rect(10, 10, 50, 120), 20, 16, 99},
		{"clamped top", image.Rect(10, -40, 50, 5), 20, 16, 11},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x, y := labelOrigin(bounds, tc.box, tc.width, 11)
			if x != tc.wantX || y != tc.wantY {
				t.Errorf("labelOrigin() = (%d, %d), want (%d, %d)", x, y, tc.wantX, tc.wantY)
			}
		})
	}
}

func TestAnnotate(t *testing.T) {
	raw, err := imaging.EncodeJPEG(grayImage(64, 48))
	if err != nil {
		t.Fatal(err)
	}

	out, err := Annotate(raw, []recognition.RecognizedFace{{Top: 5, Right: 40, Bottom: 40, Left: 5, Name: "x"}}, Outline)
	if err != nil {
		t.Fatalf("Annotate() error: %v", err)
	}
	img, format, err := imaging.Decode(out)
	if err != nil {
		t.Fatalf("output not decodable: %v", err)
	}
	if format != "jpeg" || img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("unexpected output %s %v", format, img.Bounds())
	}
}

func TestAnnotate_BadBuffer(t *testing.T) {
	if _, err := Annotate([]byte("garbage"), nil, Outline); err == nil {
		t.Error("expected decode error")
	}
}
