package og

import (
	"image/color"
	"math"
	"strings"
	"unicode/utf8"
)

// SiteFooter is printed at the bottom of every preview.
const SiteFooter = "utilitygods.com"

// Truncation budget. Titles and categories longer than this are cut and
// ellipsized before layout; the title is also capped at MaxTitleLines.
const (
	MaxTitleRunes    = 110
	MaxCategoryRunes = 40
	MaxTitleLines    = 4
)

// Ellipsis terminates truncated text.
const Ellipsis = "…"

// Node names used by Compose.
const (
	NodeRoot     = "root"
	NodeStack    = "stack"
	NodeCategory = "category"
	NodeTitle    = "title"
	NodeFooter   = "footer"
)

// NodeKind distinguishes container boxes from text leaves.
type NodeKind int

const (
	KindBox NodeKind = iota
	KindText
)

// Justify is the main-axis alignment of a box's children.
type Justify int

const (
	JustifyStart Justify = iota
	JustifyCenter
)

// TextTransform mirrors CSS text-transform.
type TextTransform int

const (
	TransformNone TextTransform = iota
	TransformUppercase
)

// Style holds the inline declarations of a node. Zero values mean "unset":
// Color, FontSize and FontWeight inherit from the parent, everything else
// falls back to its CSS initial value. Boxes always stack their children
// vertically (flex column).
type Style struct {
	Fill          bool // width and height 100% of the parent
	Padding       float64
	Gap           float64
	MarginTop     float64
	Justify       Justify
	Background    *Gradient
	Color         *color.NRGBA
	FontSize      float64
	FontWeight    int
	LineHeight    float64 // multiplier of FontSize; 0 is "normal"
	LetterSpacing float64
	Transform     TextTransform
	MaxLines      int // 0 is unlimited
}

// Node is one element of the markup tree.
type Node struct {
	Kind     NodeKind
	Name     string
	Style    Style
	Text     string
	Children []*Node
}

// Box returns a container node.
func Box(name string, style Style, children ...*Node) *Node {
	return &Node{Kind: KindBox, Name: name, Style: style, Children: children}
}

// Text returns a text leaf.
func Text(name string, style Style, text string) *Node {
	return &Node{Kind: KindText, Name: name, Style: style, Text: text}
}

// Content returns the node's text with whitespace collapsed and the
// text transform applied.
func (n *Node) Content() string {
	s := strings.Join(strings.Fields(n.Text), " ")
	if n.Style.Transform == TransformUppercase {
		s = strings.ToUpper(s)
	}
	return s
}

// Walk visits n and its descendants depth-first until fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Find returns every node in the tree with the given name.
func (n *Node) Find(name string) []*Node {
	var found []*Node
	n.Walk(func(m *Node) bool {
		if m != nil && m.Name == name {
			found = append(found, m)
		}
		return true
	})
	return found
}

// Stop is one color stop of a gradient; Offset is in [0, 1].
type Stop struct {
	Offset float64
	Color  color.NRGBA
}

// Gradient is a CSS linear-gradient. Angle is in degrees, 0 pointing up and
// increasing clockwise.
type Gradient struct {
	Angle float64
	Stops []Stop
}

// Line returns the start and end points of the gradient line for a w×h box,
// in box coordinates.
func (g Gradient) Line(w, h float64) (x1, y1, x2, y2 float64) {
	rad := g.Angle * math.Pi / 180
	dx, dy := math.Sin(rad), -math.Cos(rad)
	half := (math.Abs(w*dx) + math.Abs(h*dy)) / 2
	cx, cy := w/2, h/2
	return cx - dx*half, cy - dy*half, cx + dx*half, cy + dy*half
}

// At returns the gradient color at (x, y) of a w×h box.
func (g Gradient) At(x, y, w, h float64) color.NRGBA {
	if len(g.Stops) == 0 {
		return color.NRGBA{}
	}
	x1, y1, x2, y2 := g.Line(w, h)
	lx, ly := x2-x1, y2-y1
	length2 := lx*lx + ly*ly
	t := 0.0
	if length2 > 0 {
		t = ((x-x1)*lx + (y-y1)*ly) / length2
	}
	first, last := g.Stops[0], g.Stops[len(g.Stops)-1]
	if t <= first.Offset {
		return first.Color
	}
	if t >= last.Offset {
		return last.Color
	}
	for i := 1; i < len(g.Stops); i++ {
		a, b := g.Stops[i-1], g.Stops[i]
		if t > b.Offset {
			continue
		}
		span := b.Offset - a.Offset
		if span <= 0 {
			return b.Color
		}
		return lerpColor(a.Color, b.Color, (t-a.Offset)/span)
	}
	return last.Color
}

func lerpColor(a, b color.NRGBA, t float64) color.NRGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

var (
	backgroundGradient = Gradient{
		Angle: 135,
		Stops: []Stop{
			{Offset: 0, Color: color.NRGBA{R: 0x66, G: 0x7e, B: 0xea, A: 0xff}},
			{Offset: 1, Color: color.NRGBA{R: 0x76, G: 0x4b, B: 0xa2, A: 0xff}},
		},
	}
	colorWhite    = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	colorCategory = color.NRGBA{R: 0xfc, G: 0xa5, B: 0xa5, A: 0xff}
	colorFooter   = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xe6}
)

// Compose builds the preview markup for one post. Every size, color and
// spacing is fixed so all previews share one look. The category label is
// omitted when category is blank.
func Compose(title, category string) *Node {
	stack := Box(NodeStack, Style{Gap: 20, Color: ptr(colorWhite)})

	if strings.TrimSpace(category) != "" {
		stack.Children = append(stack.Children, Text(NodeCategory, Style{
			FontSize:      32,
			Color:         ptr(colorCategory),
			Transform:     TransformUppercase,
			LetterSpacing: 2,
			FontWeight:    600,
		}, Truncate(category, MaxCategoryRunes)))
	}

	stack.Children = append(stack.Children,
		Text(NodeTitle, Style{
			FontSize:   64,
			FontWeight: 800,
			LineHeight: 1.2,
			MaxLines:   MaxTitleLines,
		}, Truncate(title, MaxTitleRunes)),
		Text(NodeFooter, Style{
			FontSize:  28,
			Color:     ptr(colorFooter),
			MarginTop: 20,
		}, SiteFooter),
	)

	return Box(NodeRoot, Style{
		Fill:       true,
		Padding:    80,
		Justify:    JustifyCenter,
		Background: background(),
	}, stack)
}

// ptr and background hand out fresh copies so no two trees share a style value.
func ptr(c color.NRGBA) *color.NRGBA { return &c }

func background() *Gradient {
	g := backgroundGradient
	g.Stops = append([]Stop(nil), backgroundGradient.Stops...)
	return &g
}

// Truncate collapses whitespace in s and cuts it to at most max runes,
// ending in Ellipsis when anything was dropped.
func Truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	cut := strings.TrimRight(string(runes[:max-1]), " ")
	return cut + Ellipsis
}
