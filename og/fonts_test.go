package og

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/image/font/gofont/goregular"
)

func TestHTTPFontLoaderLoads(t *testing.T) {
	fs := newFontServer(t)
	regular, _ := fs.sources()
	a, err := NewHTTPFontLoader(time.Second).Load(context.Background(), regular)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(a.Data) != len(goregular.TTF) {
		t.Errorf("data = %d bytes, want %d", len(a.Data), len(goregular.TTF))
	}
	if a.Family != "Go" || a.Weight != 400 || a.Style != "normal" {
		t.Errorf("metadata = %+v", a.FontSource)
	}
}

func TestHTTPFontLoaderFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing.ttf":
			http.NotFound(w, r)
		case "/corrupt.ttf":
			_, _ = w.Write([]byte("definitely not a font"))
		case "/slow.ttf":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write(goregular.TTF)
		}
	}))
	defer srv.Close()

	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name string
		url  string
	}{
		{"non-200", srv.URL + "/missing.ttf"},
		{"corrupt payload", srv.URL + "/corrupt.ttf"},
		{"timeout", srv.URL + "/slow.ttf"},
		{"connection refused", closedURL + "/regular.ttf"},
	}
	loader := NewHTTPFontLoader(50 * time.Millisecond)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := loader.Load(context.Background(), FontSource{URL: tt.url})
			if !errors.Is(err, ErrFontFetch) {
				t.Fatalf("err = %v, want ErrFontFetch", err)
			}
			if a.Data != nil {
				t.Errorf("got %d bytes alongside an error", len(a.Data))
			}
		})
	}
}

// blockingLoader counts calls and holds every load until release is closed.
type blockingLoader struct {
	calls   atomic.Int32
	release chan struct{}
	fail    bool
}

func (l *blockingLoader) Load(ctx context.Context, src FontSource) (FontAsset, error) {
	l.calls.Add(1)
	<-l.release
	if l.fail {
		return FontAsset{}, ErrFontFetch
	}
	return FontAsset{FontSource: src, Data: goregular.TTF}, nil
}

func TestFontCacheSingleFlight(t *testing.T) {
	loader := &blockingLoader{release: make(chan struct{})}
	cache := NewFontCache(loader)
	src := FontSource{URL: "https://fonts.example/regular.ttf", Family: "Go", Weight: 400}

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = cache.Load(context.Background(), src)
		}()
	}
	// Give every goroutine time to join the in-flight load.
	time.Sleep(50 * time.Millisecond)
	close(loader.release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("load %d: %v", i, err)
		}
	}
	if got := loader.calls.Load(); got != 1 {
		t.Errorf("underlying loads = %d, want 1", got)
	}
	if _, err := cache.Load(context.Background(), src); err != nil {
		t.Fatalf("cached load: %v", err)
	}
	if got := loader.calls.Load(); got != 1 {
		t.Errorf("underlying loads after cache hit = %d, want 1", got)
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1", cache.Len())
	}
}

func TestFontCacheCanceledCallerDoesNotFailOthers(t *testing.T) {
	loader := &blockingLoader{release: make(chan struct{})}
	cache := NewFontCache(loader)
	src := FontSource{URL: "https://fonts.example/bold.ttf", Family: "Go", Weight: 700}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := cache.Load(ctxA, src)
		errA <- err
	}()
	// Let the first caller start the shared fetch.
	time.Sleep(20 * time.Millisecond)

	errB := make(chan error, 1)
	go func() {
		_, err := cache.Load(context.Background(), src)
		errB <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Errorf("canceled caller err = %v, want context.Canceled", err)
	}
	close(loader.release)
	if err := <-errB; err != nil {
		t.Errorf("live caller err = %v, want nil", err)
	}
	if got := loader.calls.Load(); got != 1 {
		t.Errorf("underlying loads = %d, want 1", got)
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1", cache.Len())
	}
}

// splitLoader fails one URL at once and holds every other load until
// release is closed.
type splitLoader struct {
	failURL string
	release chan struct{}
}

func (l *splitLoader) Load(ctx context.Context, src FontSource) (FontAsset, error) {
	if src.URL == l.failURL {
		return FontAsset{}, ErrFontFetch
	}
	<-l.release
	return FontAsset{FontSource: src, Data: goregular.TTF}, nil
}

func TestLoadFontSetFailureDoesNotFailSharedFetch(t *testing.T) {
	regular := FontSource{URL: "https://fonts.example/regular.ttf", Weight: 400}
	bold := FontSource{URL: "https://fonts.example/bold.ttf", Weight: 700}
	loader := &splitLoader{failURL: regular.URL, release: make(chan struct{})}
	cache := NewFontCache(loader)

	// Another task is already waiting on the bold font.
	errB := make(chan error, 1)
	go func() {
		_, err := cache.Load(context.Background(), bold)
		errB <- err
	}()
	time.Sleep(20 * time.Millisecond)

	// This set fails on regular, which cancels its own wait for bold.
	if _, err := LoadFontSet(context.Background(), cache, regular, bold); !errors.Is(err, ErrFontFetch) {
		t.Errorf("LoadFontSet err = %v, want ErrFontFetch", err)
	}
	close(loader.release)
	if err := <-errB; err != nil {
		t.Errorf("other task err = %v, want nil", err)
	}
}

func TestFontCacheDoesNotCacheFailures(t *testing.T) {
	loader := &blockingLoader{release: make(chan struct{}), fail: true}
	close(loader.release)
	cache := NewFontCache(loader)
	src := FontSource{URL: "https://fonts.example/bold.ttf"}

	for i := 0; i < 2; i++ {
		if _, err := cache.Load(context.Background(), src); !errors.Is(err, ErrFontFetch) {
			t.Fatalf("err = %v, want ErrFontFetch", err)
		}
	}
	if got := loader.calls.Load(); got != 2 {
		t.Errorf("underlying loads = %d, want 2", got)
	}
	if cache.Len() != 0 {
		t.Errorf("Len = %d, want 0", cache.Len())
	}
}

func TestFontCacheKeepsCallerMetadata(t *testing.T) {
	fs := newFontServer(t)
	regular, _ := fs.sources()
	cache := NewFontCache(NewHTTPFontLoader(time.Second))
	if _, err := cache.Load(context.Background(), regular); err != nil {
		t.Fatalf("Load: %v", err)
	}
	alias := regular
	alias.Family = "Alias"
	a, err := cache.Load(context.Background(), alias)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if a.Family != "Alias" {
		t.Errorf("Family = %q, want Alias", a.Family)
	}
	if got := fs.hits["/regular.ttf"].Load(); got != 1 {
		t.Errorf("server hits = %d, want 1", got)
	}
}
