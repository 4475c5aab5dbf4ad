package og

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Rasterize paints doc onto a new RGBA image of doc's size.
func Rasterize(doc *Document, faces *Faces) (*image.RGBA, error) {
	if doc.Width <= 0 || doc.Height <= 0 {
		return nil, fmt.Errorf("%w: canvas %dx%d", ErrLayout, doc.Width, doc.Height)
	}
	img := image.NewRGBA(image.Rect(0, 0, doc.Width, doc.Height))

	for _, f := range doc.Fills {
		r := pixelRect(f.Rect).Intersect(img.Bounds())
		if r.Empty() {
			continue
		}
		var src image.Image = image.NewUniform(f.Color)
		if f.Gradient != nil {
			src = &gradientImage{g: *f.Gradient, rect: f.Rect}
		}
		draw.Draw(img, r, src, r.Min, draw.Over)
	}

	for _, run := range doc.Runs {
		face, err := faces.Face(run.Weight, run.Size)
		if err != nil {
			return nil, err
		}
		drawRun(img, face, run)
	}
	return img, nil
}

// drawRun draws glyph by glyph so letter spacing matches MeasureString.
func drawRun(dst draw.Image, face font.Face, run TextRun) {
	src := image.NewUniform(run.Color)
	spacing := round26_6(run.LetterSpacing)
	dot := fixed.Point26_6{X: round26_6(run.X), Y: round26_6(run.Baseline)}
	prev := rune(-1)
	for _, r := range run.Text {
		if prev >= 0 {
			dot.X += face.Kern(prev, r)
		}
		dr, mask, maskp, advance, ok := face.Glyph(dot, r)
		if ok {
			draw.DrawMask(dst, dr, src, image.Point{}, mask, maskp, draw.Over)
		}
		dot.X += advance + spacing
		prev = r
	}
}

// Encode writes img as PNG at the default compression level.
func Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return buf.Bytes(), nil
}

func pixelRect(r Rect) image.Rectangle {
	return image.Rect(
		int(r.X+0.5), int(r.Y+0.5),
		int(r.X+r.W+0.5), int(r.Y+r.H+0.5),
	)
}

// gradientImage samples a Gradient at pixel centers of rect.
type gradientImage struct {
	g    Gradient
	rect Rect
}

func (gi *gradientImage) ColorModel() color.Model { return color.NRGBAModel }

func (gi *gradientImage) Bounds() image.Rectangle { return pixelRect(gi.rect) }

func (gi *gradientImage) At(x, y int) color.Color {
	return gi.g.At(float64(x)+0.5-gi.rect.X, float64(y)+0.5-gi.rect.Y, gi.rect.W, gi.rect.H)
}
