package og

import (
	"context"
	"net/http"
	"strconv"
)

// Canvas dimensions shared by every preview image (1.91:1).
const (
	CanvasWidth  = 1200
	CanvasHeight = 630
)

// Response metadata attached to every RasterImage.
const (
	ContentTypePNG        = "image/png"
	CacheControlImmutable = "public, max-age=31536000, immutable"
)

// PostRecord is the slice of a blog entry the generator reads.
type PostRecord struct {
	Slug     string
	Title    string
	Category string
}

// PostSource lists every post of the blog collection.
type PostSource interface {
	Posts(ctx context.Context) ([]PostRecord, error)
}

// Task binds one post to its output route.
type Task struct {
	Slug string
	Post PostRecord
}

// Path returns the route the task's image is served at.
func (t Task) Path() string {
	return "/og/" + t.Slug + ".png"
}

// RasterImage is an encoded preview plus the headers it is served with.
type RasterImage struct {
	Data         []byte
	Width        int
	Height       int
	ContentType  string
	CacheControl string
}

// Header returns the HTTP headers for serving img.
func (img RasterImage) Header() http.Header {
	h := make(http.Header)
	h.Set("Content-Type", img.ContentType)
	h.Set("Cache-Control", img.CacheControl)
	h.Set("Content-Length", strconv.Itoa(len(img.Data)))
	return h
}
