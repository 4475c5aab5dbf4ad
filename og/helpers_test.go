package og

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/labstack/gommon/log"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// fontServer serves the Go fonts at /regular.ttf and /bold.ttf and counts
// requests per path.
type fontServer struct {
	*httptest.Server
	hits map[string]*atomic.Int32
}

func newFontServer(t *testing.T) *fontServer {
	t.Helper()
	fs := &fontServer{hits: map[string]*atomic.Int32{
		"/regular.ttf": new(atomic.Int32),
		"/bold.ttf":    new(atomic.Int32),
	}}
	fonts := map[string][]byte{
		"/regular.ttf": goregular.TTF,
		"/bold.ttf":    gobold.TTF,
	}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := fonts[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fs.hits[r.URL.Path].Add(1)
		w.Header().Set("Content-Type", "font/ttf")
		_, _ = w.Write(data)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fontServer) sources() (FontSource, FontSource) {
	return FontSource{URL: fs.URL + "/regular.ttf", Family: "Go", Weight: 400, Style: "normal"},
		FontSource{URL: fs.URL + "/bold.ttf", Family: "Go", Weight: 700, Style: "normal"}
}

func quietLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

func newTestGenerator(t *testing.T) (*Generator, *fontServer) {
	t.Helper()
	fs := newFontServer(t)
	regular, bold := fs.sources()
	g := NewGenerator(NewFontCache(NewHTTPFontLoader(0)), regular, bold, quietLogger())
	return g, fs
}

// testFaces returns faces over the Go fonts without any network.
func testFaces(t *testing.T) *Faces {
	t.Helper()
	faces, err := NewFaces(FontSet{
		Regular: FontAsset{FontSource: FontSource{Family: "Go", Weight: 400}, Data: goregular.TTF},
		Bold:    FontAsset{FontSource: FontSource{Family: "Go", Weight: 700}, Data: gobold.TTF},
	})
	if err != nil {
		t.Fatalf("NewFaces: %v", err)
	}
	t.Cleanup(func() { _ = faces.Close() })
	return faces
}

type staticSource []PostRecord

func (s staticSource) Posts(context.Context) ([]PostRecord, error) {
	return s, nil
}
