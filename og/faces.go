package og

import (
	"errors"
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// boldThreshold follows CSS font matching with one regular and one bold
// face: requested weights from 600 up resolve to bold.
const boldThreshold = 600

type faceKey struct {
	bold bool
	size float64
}

// Faces sizes the fonts of a FontSet on demand. A Faces value belongs to a
// single task and is not safe for concurrent use.
type Faces struct {
	Family  string
	regular *opentype.Font
	bold    *opentype.Font
	cache   map[faceKey]font.Face
}

// NewFaces parses both programs of set.
func NewFaces(set FontSet) (*Faces, error) {
	regular, err := opentype.Parse(set.Regular.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: malformed font: %w", ErrFontFetch, set.Regular.URL, err)
	}
	bold, err := opentype.Parse(set.Bold.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: malformed font: %w", ErrFontFetch, set.Bold.URL, err)
	}
	family := set.Regular.Family
	if family == "" {
		family = set.Bold.Family
	}
	return &Faces{
		Family:  family,
		regular: regular,
		bold:    bold,
		cache:   make(map[faceKey]font.Face),
	}, nil
}

// Face returns the face for weight at size pixels.
func (f *Faces) Face(weight int, size float64) (font.Face, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: font size %v", ErrLayout, size)
	}
	key := faceKey{bold: weight >= boldThreshold, size: size}
	if face, ok := f.cache[key]; ok {
		return face, nil
	}
	src := f.regular
	if key.bold {
		src = f.bold
	}
	face, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: face %dpx: %w", ErrLayout, int(size), err)
	}
	f.cache[key] = face
	return face, nil
}

// Close releases every face created so far.
func (f *Faces) Close() error {
	var errs []error
	for key, face := range f.cache {
		if err := face.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(f.cache, key)
	}
	return errors.Join(errs...)
}
