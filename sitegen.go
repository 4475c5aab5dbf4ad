// Package sitegen generates social preview images for a Markdown site.
// It builds every preview in a batch, writes them to disk or object
// storage, and serves them on demand from an Echo server with a small
// admin dashboard.
//
// Sites may provide their own templ components via the ViewFuncs struct;
// package views has the defaults.
package sitegen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/utilitygods/sitegen/content"
	"github.com/utilitygods/sitegen/og"
	"github.com/utilitygods/sitegen/sink"
	"github.com/utilitygods/sitegen/views"
)

// Worker bounds for ResolveWorkers.
const (
	MinWorkers = 1
	MaxWorkers = 16
)

// ViewFuncs holds the templ components the server renders.
type ViewFuncs struct {
	AdminLogin     func(showError bool, csrfToken string) templ.Component
	AdminDashboard func(d views.Dashboard, csrfToken string) templ.Component
	NotFound       func() templ.Component
	ServerError    func() templ.Component
}

func (v *ViewFuncs) setDefaults() {
	if v.AdminLogin == nil {
		v.AdminLogin = views.AdminLogin
	}
	if v.AdminDashboard == nil {
		v.AdminDashboard = views.AdminDashboard
	}
	if v.NotFound == nil {
		v.NotFound = views.NotFound
	}
	if v.ServerError == nil {
		v.ServerError = views.ServerError
	}
}

// App wires together the content cache, generator, manifest store, sink,
// handlers and middleware.
type App struct {
	Config    SiteConfig
	Echo      *echo.Echo
	Logger    *log.Logger
	Store     *Store
	Content   *content.Collections
	Cache     *PostCache
	Generator *og.Generator
	Sink      sink.Sink
	Views     ViewFuncs

	fonts        og.FontLoader
	loginLimiter *LoginLimiter
	customRoutes []func(*App)
	building     sync.Mutex
	opened       bool
}

// New creates an App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.Views.setDefaults()
	if a.Logger == nil {
		a.Logger = log.New("sitegen")
		a.Logger.SetLevel(log.INFO)
	}
	a.Echo.HideBanner = true
	a.Echo.Logger = a.Logger
	return a
}

// Open initializes the store, content cache, fonts, generator and sink.
// Build and Start call it on first use.
func (a *App) Open() error {
	if a.opened {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return err
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("sitegen: init store: %w", err)
	}
	a.Store = store

	a.Content = content.New(a.Config.ContentDir)
	a.Cache = NewPostCache(a.Content, a.Config.CollectionCacheTTL.Std())

	if a.fonts == nil {
		var loader og.FontLoader = og.NewHTTPFontLoader(a.Config.Fonts.Timeout.Std())
		if *a.Config.Fonts.Cache {
			loader = og.NewFontCache(loader)
		}
		a.fonts = loader
	}
	regular, bold := a.Config.FontSources()
	a.Generator = og.NewGenerator(a.fonts, regular, bold, a.Logger)

	if a.Sink == nil {
		s, err := a.newSink()
		if err != nil {
			store.Close()
			return fmt.Errorf("sitegen: init sink: %w", err)
		}
		a.Sink = s
	}
	a.opened = true
	return nil
}

func (a *App) newSink() (sink.Sink, error) {
	switch a.Config.Sink.Kind {
	case SinkS3:
		return sink.NewBucket(a.Config.Sink.S3)
	default:
		return sink.NewDir(a.Config.OutputDir), nil
	}
}

// Setup installs middleware and routes without starting the server.
func (a *App) Setup() error {
	if err := a.Open(); err != nil {
		return err
	}
	if a.Config.Admin.Password == "" {
		return fmt.Errorf("sitegen: admin password is required (%s)", EnvAdminPassword)
	}
	if a.Config.Admin.SessionSecret == "" {
		return fmt.Errorf("sitegen: session secret is required (%s)", EnvSessionSecret)
	}
	a.loginLimiter = NewLoginLimiter(5, time.Minute)
	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start sets the App up and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	a.Logger.Infof("serving %s on %s", a.Config.Name, a.Config.Addr)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/og/*", a.handlePreview)

	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)
	e.POST("/admin/rebuild/", a.handleAdminRebuild)
	e.GET("/admin/thumbs/*", a.handleThumb)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// ResolveWorkers returns workers when positive, otherwise half of
// GOMAXPROCS bounded to [MinWorkers, MaxWorkers].
func ResolveWorkers(workers int) int {
	if workers > 0 {
		return workers
	}
	n := runtime.GOMAXPROCS(0) / 2
	if n < MinWorkers {
		return MinWorkers
	}
	if n > MaxWorkers {
		return MaxWorkers
	}
	return n
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
