// Package annotate burns face boxes and name labels into images.
package annotate

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/kozaktomas/facewatch/internal/constants"
	"github.com/kozaktomas/facewatch/internal/imaging"
	"github.com/kozaktomas/facewatch/internal/recognition"
)

// Style selects how faces are drawn.
type Style int

const (
	// Outline draws a green box with a white label inside its bottom-left corner.
	Outline Style = iota
	// Banded draws the box plus a filled label band along its bottom edge,
	// green for known identities and red for Unknown.
	Banded
)

const (
	boxThickness = 2
	bandHeight   = 35
	labelPadding = 6
)

var (
	colorKnown   = color.RGBA{G: 255, A: 255}
	colorUnknown = color.RGBA{R: 255, A: 255}
	colorLabel   = color.RGBA{R: 255, G: 255, B: 255, A: 255}

	labelFace font.Face = basicfont.Face7x13
)

// Annotate decodes raw, draws faces and returns the result as JPEG.
func Annotate(raw []byte, faces []recognition.RecognizedFace, style Style) ([]byte, error) {
	img, _, err := imaging.Decode(raw)
	if err != nil {
		return nil, err
	}
	return imaging.EncodeJPEG(Draw(img, faces, style))
}

// Draw returns a copy of img with faces drawn on it.
func Draw(img image.Image, faces []recognition.RecognizedFace, style Style) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Src)

	for _, f := range faces {
		drawFace(dst, f, style)
	}
	return dst
}

func boxColor(f recognition.RecognizedFace, style Style) color.RGBA {
	if style == Banded && f.Name == constants.UnknownName {
		return colorUnknown
	}
	return colorKnown
}

func drawFace(dst *image.RGBA, f recognition.RecognizedFace, style Style) {
	box := f.Rect().Canon()
	c := boxColor(f, style)
	strokeRect(dst, box, c)

	if style == Banded {
		band := image.Rect(box.Min.X, box.Max.Y-bandHeight, box.Max.X, box.Max.Y)
		fill(dst, band, c)
	}

	label := foldLabel(f.Name)
	width := font.MeasureString(labelFace, label).Ceil()
	x, y := labelOrigin(dst.Bounds(), box, width, labelFace.Metrics().Ascent.Ceil())

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(colorLabel),
		Face: labelFace,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(label)
}

// labelOrigin returns the text baseline origin for a label of the given
// width, clamped so the text stays inside bounds.
func labelOrigin(bounds, box image.Rectangle, width, ascent int) (int, int) {
	x := box.Min.X + labelPadding
	y := box.Max.Y - labelPadding

	if x+width > bounds.Max.X {
		x = bounds.Max.X - width
	}
	if x < bounds.Min.X {
		x = bounds.Min.X
	}
	if y > bounds.Max.Y-1 {
		y = bounds.Max.Y - 1
	}
	if y-ascent < bounds.Min.Y {
		y = bounds.Min.Y + ascent
	}
	return x, y
}

func fill(dst *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r.Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

func strokeRect(dst *image.RGBA, r image.Rectangle, c color.Color) {
	t := boxThickness
	fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), c)
	fill(dst, image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), c)
	fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), c)
	fill(dst, image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), c)
}
