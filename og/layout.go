package og

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// LayoutVersion changes whenever Compose or Layout would draw an existing
// post differently. It is part of every output fingerprint.
const LayoutVersion = "1"

// Rect is an axis-aligned box in canvas pixels.
type Rect struct {
	X, Y, W, H float64
}

// Fill paints Rect with a gradient, or a solid color when Gradient is nil.
type Fill struct {
	Rect     Rect
	Gradient *Gradient
	Color    color.NRGBA
}

// TextRun is one laid-out line of text. X is the left edge of the first
// glyph and Baseline the y of the baseline.
type TextRun struct {
	Node          string
	Text          string
	X             float64
	Baseline      float64
	Size          float64
	Weight        int
	Color         color.NRGBA
	LetterSpacing float64
}

// Document is the resolution-independent result of layout: paint
// operations in drawing order. It renders to SVG or to pixels.
type Document struct {
	Width  int
	Height int
	Family string
	Fills  []Fill
	Runs   []TextRun
}

// Lines returns the text of every run produced from the named node.
func (d *Document) Lines(node string) []string {
	var lines []string
	for _, r := range d.Runs {
		if r.Node == node {
			lines = append(lines, r.Text)
		}
	}
	return lines
}

// inherited carries the CSS-inherited properties down the tree.
type inherited struct {
	color  color.NRGBA
	size   float64
	weight int
}

var rootInherited = inherited{
	color:  color.NRGBA{A: 0xff},
	size:   16,
	weight: 400,
}

type layouter struct {
	faces *Faces
	doc   *Document
	lines map[*Node][]string
}

// Layout positions root on a width×height canvas using faces for text
// measurement. The root box always covers the whole canvas.
func Layout(root *Node, width, height int, faces *Faces) (*Document, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: nil root", ErrLayout)
	}
	if root.Kind != KindBox {
		return nil, fmt.Errorf("%w: root %q is not a box", ErrLayout, root.Name)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: canvas %dx%d", ErrLayout, width, height)
	}
	if err := validate(root); err != nil {
		return nil, err
	}

	l := &layouter{
		faces: faces,
		doc:   &Document{Width: width, Height: height, Family: faces.Family},
		lines: make(map[*Node][]string),
	}
	box := Rect{W: float64(width), H: float64(height)}
	if err := l.place(root, box, rootInherited); err != nil {
		return nil, err
	}
	return l.doc, nil
}

func validate(n *Node) error {
	switch {
	case n == nil:
		return fmt.Errorf("%w: nil child", ErrLayout)
	case n.Kind == KindText && len(n.Children) > 0:
		return fmt.Errorf("%w: text node %q has children", ErrLayout, n.Name)
	case n.Kind == KindBox && n.Text != "":
		return fmt.Errorf("%w: box %q has text", ErrLayout, n.Name)
	case n.Kind != KindBox && n.Kind != KindText:
		return fmt.Errorf("%w: node %q has unknown kind %d", ErrLayout, n.Name, n.Kind)
	case n.Style.Padding < 0 || n.Style.Gap < 0 || n.Style.MarginTop < 0:
		return fmt.Errorf("%w: node %q has negative spacing", ErrLayout, n.Name)
	case n.Style.FontSize < 0 || n.Style.LineHeight < 0 || n.Style.MaxLines < 0:
		return fmt.Errorf("%w: node %q has negative typography", ErrLayout, n.Name)
	}
	for _, c := range n.Children {
		if err := validate(c); err != nil {
			return err
		}
	}
	return nil
}

func (in inherited) apply(s Style) inherited {
	if s.Color != nil {
		in.color = *s.Color
	}
	if s.FontSize > 0 {
		in.size = s.FontSize
	}
	if s.FontWeight > 0 {
		in.weight = s.FontWeight
	}
	return in
}

// measure returns the border-box height of n laid out at width.
func (l *layouter) measure(n *Node, width float64, in inherited) (float64, error) {
	in = in.apply(n.Style)
	if n.Kind == KindText {
		lines, lh, err := l.text(n, width, in)
		if err != nil {
			return 0, err
		}
		return float64(len(lines)) * lh, nil
	}
	inner, err := l.stackHeight(n, width-2*n.Style.Padding, in)
	if err != nil {
		return 0, err
	}
	return inner + 2*n.Style.Padding, nil
}

func (l *layouter) stackHeight(n *Node, width float64, in inherited) (float64, error) {
	if width <= 0 {
		return 0, fmt.Errorf("%w: box %q has no room for content", ErrLayout, n.Name)
	}
	total := 0.0
	for i, c := range n.Children {
		h, err := l.measure(c, width, in)
		if err != nil {
			return 0, err
		}
		total += c.Style.MarginTop + h
		if i > 0 {
			total += n.Style.Gap
		}
	}
	return total, nil
}

func (l *layouter) place(n *Node, box Rect, in inherited) error {
	in = in.apply(n.Style)
	if n.Kind == KindText {
		return l.placeText(n, box, in)
	}

	if bg := n.Style.Background; bg != nil {
		g := *bg
		l.doc.Fills = append(l.doc.Fills, Fill{Rect: box, Gradient: &g})
	}

	pad := n.Style.Padding
	inner := Rect{X: box.X + pad, Y: box.Y + pad, W: box.W - 2*pad, H: box.H - 2*pad}
	content, err := l.stackHeight(n, inner.W, in)
	if err != nil {
		return err
	}

	y := inner.Y
	if n.Style.Justify == JustifyCenter {
		y += (inner.H - content) / 2
	}
	for i, c := range n.Children {
		if i > 0 {
			y += n.Style.Gap
		}
		y += c.Style.MarginTop
		h, err := l.measure(c, inner.W, in)
		if err != nil {
			return err
		}
		child := Rect{X: inner.X, Y: y, W: inner.W, H: h}
		if c.Style.Fill {
			child = inner
		}
		if err := l.place(c, child, in); err != nil {
			return err
		}
		y += h
	}
	return nil
}

func (l *layouter) placeText(n *Node, box Rect, in inherited) error {
	lines, lh, err := l.text(n, box.W, in)
	if err != nil {
		return err
	}
	face, err := l.faces.Face(in.weight, in.size)
	if err != nil {
		return err
	}
	m := face.Metrics()
	ascent := fixedToFloat(m.Ascent)
	glyphHeight := ascent + fixedToFloat(m.Descent)

	for i, line := range lines {
		top := box.Y + float64(i)*lh
		l.doc.Runs = append(l.doc.Runs, TextRun{
			Node:          n.Name,
			Text:          line,
			X:             box.X,
			Baseline:      top + (lh-glyphHeight)/2 + ascent,
			Size:          in.size,
			Weight:        in.weight,
			Color:         in.color,
			LetterSpacing: n.Style.LetterSpacing,
		})
	}
	return nil
}

// text wraps n's content to width and returns its lines and line height.
func (l *layouter) text(n *Node, width float64, in inherited) ([]string, float64, error) {
	face, err := l.faces.Face(in.weight, in.size)
	if err != nil {
		return nil, 0, err
	}
	lh := fixedToFloat(face.Metrics().Height)
	if n.Style.LineHeight > 0 {
		lh = n.Style.LineHeight * in.size
	}
	if lines, ok := l.lines[n]; ok {
		return lines, lh, nil
	}
	if width <= 0 {
		return nil, 0, fmt.Errorf("%w: text %q has no room", ErrLayout, n.Name)
	}

	spacing := n.Style.LetterSpacing
	measure := func(s string) float64 { return MeasureString(face, s, spacing) }
	lines := wrapText(n.Content(), width, measure)
	if n.Style.MaxLines > 0 && len(lines) > n.Style.MaxLines {
		lines = ellipsize(lines[:n.Style.MaxLines], width, measure)
	}
	l.lines[n] = lines
	return lines, lh, nil
}

// MeasureString returns the advance width of s in pixels, with spacing
// added after every rune as CSS letter-spacing does.
func MeasureString(face font.Face, s string, spacing float64) float64 {
	var adv fixed.Int26_6
	prev := rune(-1)
	n := 0
	for _, r := range s {
		if prev >= 0 {
			adv += face.Kern(prev, r)
		}
		a, _ := face.GlyphAdvance(r)
		adv += a
		prev = r
		n++
	}
	return fixedToFloat(adv) + spacing*float64(n)
}

// wrapText breaks text into lines no wider than maxWidth, splitting at
// spaces and breaking single words that do not fit on their own.
func wrapText(text string, maxWidth float64, measure func(string) float64) []string {
	var lines []string
	line := ""
	for _, word := range strings.Fields(text) {
		if line != "" {
			if candidate := line + " " + word; measure(candidate) <= maxWidth {
				line = candidate
				continue
			}
			lines = append(lines, line)
			line = ""
		}
		for word != "" && measure(word) > maxWidth {
			head, tail := splitToFit(word, maxWidth, measure)
			lines = append(lines, head)
			word = tail
		}
		line = word
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// splitToFit returns the longest prefix of word that fits maxWidth, but
// never less than one rune.
func splitToFit(word string, maxWidth float64, measure func(string) float64) (string, string) {
	runes := []rune(word)
	n := 1
	for n < len(runes) && measure(string(runes[:n+1])) <= maxWidth {
		n++
	}
	return string(runes[:n]), string(runes[n:])
}

// ellipsize ends the last line with Ellipsis, trimming it until it fits.
func ellipsize(lines []string, maxWidth float64, measure func(string) float64) []string {
	out := append([]string(nil), lines...)
	last := []rune(strings.TrimSuffix(out[len(out)-1], Ellipsis))
	for len(last) > 0 && measure(string(last)+Ellipsis) > maxWidth {
		last = last[:len(last)-1]
	}
	out[len(out)-1] = strings.TrimRight(string(last), " ") + Ellipsis
	return out
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func round26_6(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
