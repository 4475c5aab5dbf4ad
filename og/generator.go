package og

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"
)

// Generator turns posts into preview images. It is safe for concurrent use;
// each call works on its own markup tree, faces and image.
type Generator struct {
	loader  FontLoader
	regular FontSource
	bold    FontSource
	logger  *log.Logger
}

// NewGenerator creates a Generator that obtains regular and bold through
// loader. A nil logger discards batch logging.
func NewGenerator(loader FontLoader, regular, bold FontSource, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.New("og")
		logger.SetLevel(log.OFF)
	}
	return &Generator{loader: loader, regular: regular, bold: bold, logger: logger}
}

// Generate renders the preview for post. On error the returned image is the
// zero value; nothing partial is ever returned.
func (g *Generator) Generate(ctx context.Context, post PostRecord) (RasterImage, error) {
	var out RasterImage
	err := g.render(ctx, post, func(doc *Document, faces *Faces) error {
		img, err := Rasterize(doc, faces)
		if err != nil {
			return err
		}
		data, err := Encode(img)
		if err != nil {
			return err
		}
		b := img.Bounds()
		out = RasterImage{
			Data:         data,
			Width:        b.Dx(),
			Height:       b.Dy(),
			ContentType:  ContentTypePNG,
			CacheControl: CacheControlImmutable,
		}
		return nil
	})
	if err != nil {
		return RasterImage{}, err
	}
	return out, nil
}

// Vector lays out post and returns the intermediate document without
// rasterizing it.
func (g *Generator) Vector(ctx context.Context, post PostRecord) (*Document, error) {
	var out *Document
	err := g.render(ctx, post, func(doc *Document, _ *Faces) error {
		out = doc
		return nil
	})
	return out, err
}

func (g *Generator) render(ctx context.Context, post PostRecord, fn func(*Document, *Faces) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	set, err := LoadFontSet(ctx, g.loader, g.regular, g.bold)
	if err != nil {
		if !errors.Is(err, ErrFontFetch) {
			err = fmt.Errorf("%w: %w", ErrFontFetch, err)
		}
		return err
	}
	faces, err := NewFaces(set)
	if err != nil {
		return err
	}
	defer faces.Close()

	doc, err := Layout(Compose(post.Title, post.Category), CanvasWidth, CanvasHeight, faces)
	if err != nil {
		return err
	}
	return fn(doc, faces)
}

// Fingerprint identifies everything that determines post's image: the
// layout version, the post fields drawn, and the font sources.
func (g *Generator) Fingerprint(post PostRecord) string {
	h := sha256.New()
	for _, part := range []string{
		LayoutVersion,
		post.Title,
		post.Category,
		g.regular.URL,
		g.bold.URL,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// RunOptions controls a batch run.
type RunOptions struct {
	// Workers bounds concurrent tasks; values below 1 mean 1.
	Workers int

	// FailFast cancels the remaining tasks after the first failure. By
	// default a failure affects only its own task.
	FailFast bool

	// Reuse may return a previously generated image for a task, which then
	// skips generation.
	Reuse func(Task) (RasterImage, bool)

	// Deliver receives every successful image. Its error fails the task.
	// It is called from worker goroutines.
	Deliver func(ctx context.Context, task Task, img RasterImage) error
}

// Result is the outcome of one task.
type Result struct {
	Task     Task
	Image    RasterImage
	Err      error
	Reused   bool
	Duration time.Duration
}

// Run generates every task and returns results in task order.
func (g *Generator) Run(ctx context.Context, tasks []Task, opts RunOptions) []Result {
	if len(tasks) == 0 {
		return nil
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(tasks))
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(workers)
	for i, task := range tasks {
		grp.Go(func() error {
			res := g.runTask(gctx, task, opts)
			results[i] = res
			if res.Err != nil {
				g.logger.Errorf("og %s: %v", task.Path(), res.Err)
				if opts.FailFast {
					return res.Err
				}
				return nil
			}
			g.logger.Infof("og %s (%d bytes, %s)", task.Path(), len(res.Image.Data), res.Duration)
			return nil
		})
	}
	_ = grp.Wait()
	return results
}

func (g *Generator) runTask(ctx context.Context, task Task, opts RunOptions) Result {
	start := time.Now()
	res := Result{Task: task}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	img, reused := RasterImage{}, false
	if opts.Reuse != nil {
		img, reused = opts.Reuse(task)
	}
	if !reused {
		var err error
		img, err = g.Generate(ctx, task.Post)
		if err != nil {
			res.Err = err
			res.Duration = time.Since(start)
			return res
		}
	}
	if opts.Deliver != nil {
		if err := opts.Deliver(ctx, task, img); err != nil {
			res.Err = fmt.Errorf("deliver %s: %w", task.Path(), err)
			res.Duration = time.Since(start)
			return res
		}
	}
	res.Image = img
	res.Reused = reused
	res.Duration = time.Since(start)
	return res
}

// Build enumerates src and runs every task. It fails as a whole only when
// the source fails; task failures are reported in the results.
func (g *Generator) Build(ctx context.Context, src PostSource, opts RunOptions) ([]Result, error) {
	tasks, err := Enumerate(ctx, src)
	if err != nil {
		return nil, err
	}
	g.logger.Infof("og: %d tasks, %d workers", len(tasks), max(opts.Workers, 1))
	return g.Run(ctx, tasks, opts), nil
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}
