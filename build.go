package sitegen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/utilitygods/sitegen/content"
	"github.com/utilitygods/sitegen/og"
	"github.com/utilitygods/sitegen/sink"
)

// BuildOptions controls a batch build.
type BuildOptions struct {
	// Workers overrides SiteConfig.Workers when positive.
	Workers int
	// FailFast overrides SiteConfig.FailFast when set.
	FailFast *bool
	// Incremental reuses stored previews whose fingerprint still matches
	// instead of drawing them again.
	Incremental bool
	// Prune removes stored previews of posts that no longer exist.
	Prune bool
}

// bucketSink is a sink whose bucket may need creating before the first put.
type bucketSink interface {
	EnsureBucket(ctx context.Context) error
}

// BuildReport summarizes a batch build.
type BuildReport struct {
	ID       string
	Total    int
	Failed   int
	Reused   int
	Pruned   int
	Duration time.Duration
	Results  []og.Result
}

// Err joins the errors of every failed task, or returns nil.
func (r BuildReport) Err() error {
	var errs []error
	for _, res := range og.Failed(r.Results) {
		errs = append(errs, fmt.Errorf("%s: %w", res.Task.Path(), res.Err))
	}
	return errors.Join(errs...)
}

// Build generates the preview of every post, delivers each one to the sink
// and records it in the manifest. Only one build runs at a time. A failing
// post fails its own task; Build itself fails only when the content cannot
// be read or the manifest cannot be written.
func (a *App) Build(ctx context.Context, opts BuildOptions) (BuildReport, error) {
	if err := a.Open(); err != nil {
		return BuildReport{}, err
	}
	if !a.building.TryLock() {
		return BuildReport{}, ErrBuildRunning
	}
	defer a.building.Unlock()

	if b, ok := a.Sink.(bucketSink); ok {
		if err := b.EnsureBucket(ctx); err != nil {
			return BuildReport{}, err
		}
	}

	start := time.Now()
	report := BuildReport{ID: uuid.NewString()}
	if err := a.Store.StartBuild(ctx, report.ID, start); err != nil {
		return BuildReport{}, err
	}

	failFast := a.Config.FailFast
	if opts.FailFast != nil {
		failFast = *opts.FailFast
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = a.Config.Workers
	}
	deliver := sink.Deliver(a.Sink)
	var reused sync.Map
	run := og.RunOptions{
		Workers:  ResolveWorkers(workers),
		FailFast: failFast,
		Deliver: func(ctx context.Context, task og.Task, img og.RasterImage) error {
			if err := deliver(ctx, task, img); err != nil {
				return err
			}
			if _, ok := reused.Load(task.Slug); ok {
				return nil
			}
			return a.Store.SaveImage(ctx, ImageRecord{
				Slug:        task.Slug,
				Title:       task.Post.Title,
				Category:    task.Post.Category,
				Fingerprint: a.Generator.Fingerprint(task.Post),
				Width:       img.Width,
				Height:      img.Height,
				Data:        img.Data,
				BuildID:     report.ID,
			})
		},
	}
	if opts.Incremental {
		run.Reuse = func(task og.Task) (og.RasterImage, bool) {
			img, ok := a.reuse(task)
			if ok {
				reused.Store(task.Slug, true)
			}
			return img, ok
		}
	}

	// A malformed team file fails the build like a malformed post.
	if _, err := a.teamSize(ctx); err != nil {
		_ = a.finishBuild(report, start)
		return BuildReport{}, err
	}
	a.Cache.Invalidate()
	results, err := a.Generator.Build(ctx, a.Cache, run)
	if err != nil {
		_ = a.finishBuild(report, start)
		return BuildReport{}, err
	}
	report.Results = results
	report.Total = len(results)
	for _, r := range results {
		switch {
		case r.Err != nil:
			report.Failed++
		case r.Reused:
			report.Reused++
		}
	}

	if opts.Prune && ctx.Err() == nil {
		keep := make([]string, len(results))
		for i, r := range results {
			keep[i] = r.Task.Slug
		}
		n, err := a.Store.PruneImages(ctx, keep)
		if err != nil {
			return report, err
		}
		report.Pruned = n
	}

	report.Duration = time.Since(start)
	if err := a.finishBuild(report, start); err != nil {
		return report, err
	}
	a.Logger.Infof("build %s: %d tasks, %d failed, %d reused, %d pruned in %s",
		report.ID, report.Total, report.Failed, report.Reused, report.Pruned, report.Duration.Round(time.Millisecond))
	return report, nil
}

// finishBuild records the outcome even when ctx was canceled.
func (a *App) finishBuild(report BuildReport, start time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.Store.FinishBuild(ctx, BuildRecord{
		ID:         report.ID,
		StartedAt:  start,
		FinishedAt: time.Now(),
		Total:      report.Total,
		Failed:     report.Failed,
		Reused:     report.Reused,
	})
}

// teamSize parses the team collection and returns its size. A site
// without one has no team.
func (a *App) teamSize(ctx context.Context) (int, error) {
	members, err := a.Content.Team(ctx)
	switch {
	case errors.Is(err, content.ErrCollectionNotFound):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("%w: team: %w", og.ErrUpstreamData, err)
	}
	return len(members), nil
}

// reuse returns the stored preview for task when its inputs are unchanged.
func (a *App) reuse(task og.Task) (og.RasterImage, bool) {
	rec, err := a.Store.GetImage(context.Background(), task.Slug)
	if err != nil {
		return og.RasterImage{}, false
	}
	return storedPreview(rec, a.Generator.Fingerprint(task.Post))
}

// storedPreview returns rec as a servable image when it was rendered from
// inputs with the given fingerprint and its data still matches its checksum.
func storedPreview(rec ImageRecord, fingerprint string) (og.RasterImage, bool) {
	if rec.Fingerprint != fingerprint || Checksum(rec.Data) != rec.Checksum {
		return og.RasterImage{}, false
	}
	return og.RasterImage{
		Data:         rec.Data,
		Width:        rec.Width,
		Height:       rec.Height,
		ContentType:  og.ContentTypePNG,
		CacheControl: og.CacheControlImmutable,
	}, true
}
