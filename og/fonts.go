package og

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/image/font/opentype"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// maxFontSize caps a downloaded font program at 16MB.
const maxFontSize = 16 << 20

// DefaultFontTimeout bounds a single font download.
const DefaultFontTimeout = 15 * time.Second

// FontSource identifies a remote font program and the face it provides.
type FontSource struct {
	URL    string
	Family string
	Weight int
	Style  string
}

// Default font sources: Roboto regular and bold from Google Fonts.
var (
	RobotoRegular = FontSource{
		URL:    "https://fonts.gstatic.com/s/roboto/v30/KFOmCnqEu92Fr1Me5WZLCzYlKw.ttf",
		Family: "Roboto",
		Weight: 400,
		Style:  "normal",
	}
	RobotoBold = FontSource{
		URL:    "https://fonts.gstatic.com/s/roboto/v30/KFOlCnqEu92Fr1MmWUlvAx05IsDqlA.ttf",
		Family: "Roboto",
		Weight: 700,
		Style:  "normal",
	}
)

// FontAsset is a downloaded font program. Data must not be modified.
type FontAsset struct {
	FontSource
	Data []byte
}

// FontLoader makes a font program available to the layout stage.
type FontLoader interface {
	Load(ctx context.Context, src FontSource) (FontAsset, error)
}

// HTTPFontLoader downloads fonts on every call.
type HTTPFontLoader struct {
	Client  *http.Client
	Timeout time.Duration
}

// NewHTTPFontLoader returns a loader using http.DefaultClient with the given
// per-request timeout (0 disables it).
func NewHTTPFontLoader(timeout time.Duration) *HTTPFontLoader {
	return &HTTPFontLoader{Client: http.DefaultClient, Timeout: timeout}
}

// Load fetches src.URL and checks that the payload parses as a font.
func (l *HTTPFontLoader) Load(ctx context.Context, src FontSource) (FontAsset, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FontAsset{}, fmt.Errorf("%w: %s: %w", ErrFontFetch, src.URL, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return FontAsset{}, fmt.Errorf("%w: %s: %w", ErrFontFetch, src.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FontAsset{}, fmt.Errorf("%w: %s: status %d", ErrFontFetch, src.URL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFontSize+1))
	if err != nil {
		return FontAsset{}, fmt.Errorf("%w: %s: read body: %w", ErrFontFetch, src.URL, err)
	}
	if len(data) > maxFontSize {
		return FontAsset{}, fmt.Errorf("%w: %s: payload exceeds %d bytes", ErrFontFetch, src.URL, maxFontSize)
	}
	if _, err := opentype.Parse(data); err != nil {
		return FontAsset{}, fmt.Errorf("%w: %s: malformed font: %w", ErrFontFetch, src.URL, err)
	}
	return FontAsset{FontSource: src, Data: data}, nil
}

// FontCache wraps a FontLoader with a process-lifetime cache keyed by URL.
// Concurrent loads of the same uncached URL share one underlying fetch.
// Failures are not cached, so a later call retries.
type FontCache struct {
	loader FontLoader
	group  singleflight.Group

	mu     sync.RWMutex
	assets map[string]FontAsset
}

// NewFontCache creates an empty cache in front of loader.
func NewFontCache(loader FontLoader) *FontCache {
	return &FontCache{loader: loader, assets: make(map[string]FontAsset)}
}

// Load returns the cached asset for src.URL, fetching it once if needed.
// The shared fetch ignores the cancellation of whichever caller started it
// and is bounded only by the loader's own timeout; each caller stops
// waiting when its own ctx is done.
func (c *FontCache) Load(ctx context.Context, src FontSource) (FontAsset, error) {
	if a, ok := c.lookup(src.URL); ok {
		a.FontSource = src
		return a, nil
	}
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(src.URL, func() (any, error) {
		if a, ok := c.lookup(src.URL); ok {
			return a, nil
		}
		a, err := c.loader.Load(fetchCtx, src)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.assets[src.URL] = a
		c.mu.Unlock()
		return a, nil
	})

	select {
	case <-ctx.Done():
		return FontAsset{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return FontAsset{}, res.Err
		}
		a := res.Val.(FontAsset)
		a.FontSource = src
		return a, nil
	}
}

func (c *FontCache) lookup(url string) (FontAsset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.assets[url]
	return a, ok
}

// Len reports how many fonts are cached.
func (c *FontCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.assets)
}

// FontSet is the regular and bold face of one family.
type FontSet struct {
	Regular FontAsset
	Bold    FontAsset
}

// LoadFontSet fetches both weights concurrently. Either failure fails the set.
func LoadFontSet(ctx context.Context, loader FontLoader, regular, bold FontSource) (FontSet, error) {
	var set FontSet
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := loader.Load(gctx, regular)
		set.Regular = a
		return err
	})
	g.Go(func() error {
		a, err := loader.Load(gctx, bold)
		set.Bold = a
		return err
	})
	if err := g.Wait(); err != nil {
		return FontSet{}, err
	}
	return set, nil
}
