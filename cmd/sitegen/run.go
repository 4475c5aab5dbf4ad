package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/utilitygods/sitegen"
	"github.com/utilitygods/sitegen/content"
	"github.com/utilitygods/sitegen/watch"
)

// shutdownTimeout bounds a graceful server shutdown.
const shutdownTimeout = 10 * time.Second

// errPreviewsFailed reports a build in which some previews failed.
var errPreviewsFailed = errors.New("previews failed")

func run(cmd string, f *cliFlags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	logger := log.New("sitegen")
	switch {
	case f.verbose:
		logger.SetLevel(log.DEBUG)
	case f.quiet:
		logger.SetLevel(log.ERROR)
	default:
		logger.SetLevel(log.INFO)
	}

	app := sitegen.New(cfg, sitegen.WithLogger(logger))
	defer app.Close()

	ctx, stop := notifyContext(context.Background())
	defer stop()

	switch cmd {
	case "build":
		return runBuild(ctx, app, f)
	case "serve":
		return runServe(ctx, app)
	case "watch":
		return runWatch(ctx, app, f)
	}
	return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
}

// loadConfig reads the config file and applies flag overrides. A missing
// file is only an error when --config was given explicitly.
func loadConfig(f *cliFlags) (sitegen.SiteConfig, error) {
	cfg, err := sitegen.LoadConfig(f.config)
	if errors.Is(err, sitegen.ErrConfigNotFound) && !f.configSet {
		cfg, err = sitegen.ParseConfig(nil)
	}
	if err != nil {
		return sitegen.SiteConfig{}, err
	}

	if f.content != "" {
		cfg.ContentDir = f.content
	}
	if f.out != "" {
		cfg.OutputDir = f.out
	}
	if f.db != "" {
		cfg.DatabasePath = f.db
	}
	if f.addr != "" {
		cfg.Addr = f.addr
	}
	if f.workers > 0 {
		cfg.Workers = f.workers
	}
	if f.failFastSet {
		cfg.FailFast = f.failFast
	}
	return cfg, nil
}

func buildOptions(f *cliFlags) sitegen.BuildOptions {
	return sitegen.BuildOptions{Incremental: f.incremental, Prune: f.prune}
}

func runBuild(ctx context.Context, app *sitegen.App, f *cliFlags) error {
	report, err := app.Build(ctx, buildOptions(f))
	if err != nil {
		return err
	}
	return reportFailures(report)
}

func reportFailures(report sitegen.BuildReport) error {
	if report.Failed == 0 {
		return nil
	}
	for _, r := range report.Results {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", r.Task.Path(), r.Err)
		}
	}
	return fmt.Errorf("%w: %d of %d", errPreviewsFailed, report.Failed, report.Total)
}

func runServe(ctx context.Context, app *sitegen.App) error {
	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	app.Logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Shutdown(sctx); err != nil {
		return err
	}
	return <-errc
}

// runWatch builds once, then rebuilds incrementally after every change to
// the blog collection until interrupted.
func runWatch(ctx context.Context, app *sitegen.App, f *cliFlags) error {
	opts := buildOptions(f)
	opts.Incremental = true
	report, err := app.Build(ctx, opts)
	if err != nil {
		return err
	}
	if err := reportFailures(report); err != nil {
		app.Logger.Error(err)
	}

	dir := content.New(app.Config.ContentDir).Dir(content.BlogCollection)
	w, err := watch.New(dir, watch.WithExtensions(content.BlogExtensions...), watch.WithLogger(app.Logger))
	if err != nil {
		return err
	}
	defer w.Close()

	app.Logger.Infof("watching %s", dir)
	err = w.Run(ctx, func(ctx context.Context, paths []string) {
		app.Logger.Infof("%d changed, rebuilding", len(paths))
		report, err := app.Build(ctx, opts)
		if err != nil {
			app.Logger.Errorf("rebuild: %v", err)
			return
		}
		if err := reportFailures(report); err != nil {
			app.Logger.Error(err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
