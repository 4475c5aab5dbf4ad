package og

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"image/color"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// SVG renders the document as a standalone SVG image. Text is emitted as
// <text> elements referencing the document's font family, so viewers
// without that family installed fall back to sans-serif.
func (d *Document) SVG() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
			d.Width, d.Height, d.Width, d.Height)

		for i, f := range d.Fills {
			fill := svgColor(f.Color)
			opacity := svgOpacity(f.Color)
			if f.Gradient != nil {
				id := "fill" + strconv.Itoa(i)
				writeGradient(&buf, id, f)
				fill, opacity = "url(#"+id+")", ""
			}
			fmt.Fprintf(&buf, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s"%s/>`,
				num(f.Rect.X), num(f.Rect.Y), num(f.Rect.W), num(f.Rect.H), fill, opacity)
		}

		family := html.EscapeString(d.Family)
		for _, r := range d.Runs {
			fmt.Fprintf(&buf, `<text x="%s" y="%s" font-family="%s, sans-serif" font-size="%s" font-weight="%d" fill="%s"%s`,
				num(r.X), num(r.Baseline), family, num(r.Size), r.Weight, svgColor(r.Color), svgOpacity(r.Color))
			if r.LetterSpacing != 0 {
				fmt.Fprintf(&buf, ` letter-spacing="%s"`, num(r.LetterSpacing))
			}
			fmt.Fprintf(&buf, ` xml:space="preserve">%s</text>`, html.EscapeString(r.Text))
		}

		buf.WriteString(`</svg>`)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

func writeGradient(buf *bytes.Buffer, id string, f Fill) {
	x1, y1, x2, y2 := f.Gradient.Line(f.Rect.W, f.Rect.H)
	fmt.Fprintf(buf, `<defs><linearGradient id="%s" gradientUnits="userSpaceOnUse" x1="%s" y1="%s" x2="%s" y2="%s">`,
		id, num(f.Rect.X+x1), num(f.Rect.Y+y1), num(f.Rect.X+x2), num(f.Rect.Y+y2))
	for _, s := range f.Gradient.Stops {
		fmt.Fprintf(buf, `<stop offset="%s" stop-color="%s"%s/>`,
			num(s.Offset), svgColor(s.Color), stopOpacity(s.Color))
	}
	buf.WriteString(`</linearGradient></defs>`)
}

func svgColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func svgOpacity(c color.NRGBA) string {
	if c.A == 0xff {
		return ""
	}
	return ` fill-opacity="` + num(float64(c.A)/0xff) + `"`
}

func stopOpacity(c color.NRGBA) string {
	if c.A == 0xff {
		return ""
	}
	return ` stop-opacity="` + num(float64(c.A)/0xff) + `"`
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
