package sitegen

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/utilitygods/sitegen/views"
)

// recentBuilds is how many builds the dashboard lists.
const recentBuilds = 20

// rebuildTimeout bounds a rebuild started from the dashboard.
const rebuildTimeout = 10 * time.Minute

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("category"), c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.Admin.Password)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	return RenderStatus(c, http.StatusUnauthorized, a.Views.AdminLogin(true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

// handleAdminRebuild runs a full batch through the sink. The form field
// "incremental" reuses unchanged previews.
func (a *App) handleAdminRebuild(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	incremental, _ := strconv.ParseBool(c.FormValue("incremental"))

	// The batch outlives a client that disconnects.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), rebuildTimeout)
	defer cancel()

	report, err := a.Build(ctx, BuildOptions{Incremental: incremental, Prune: true})
	var msg string
	switch {
	case errors.Is(err, ErrBuildRunning):
		msg = "A build is already running."
	case err != nil:
		c.Logger().Errorf("rebuild: %v", err)
		msg = "Build failed: " + err.Error()
	case report.Failed > 0:
		msg = strconv.Itoa(report.Failed) + " of " + strconv.Itoa(report.Total) + " previews failed."
	default:
		msg = "Built " + strconv.Itoa(report.Total) + " previews (" + strconv.Itoa(report.Reused) + " unchanged)."
	}
	return c.Redirect(http.StatusSeeOther, "/admin/?msg="+url.QueryEscape(msg))
}

func (a *App) renderAdminDashboard(c echo.Context, category, msg string) error {
	ctx := c.Request().Context()
	d, err := a.dashboard(ctx, category)
	if err != nil {
		return err
	}
	d.Message = msg
	return Render(c, a.Views.AdminDashboard(d, CsrfToken(c)))
}

// dashboard collects the admin overview. A non-empty category limits the
// post count and image table to that category.
func (a *App) dashboard(ctx context.Context, category string) (views.Dashboard, error) {
	d := views.Dashboard{
		Site:     views.SiteConfig{Name: a.Config.Name, URL: a.Config.URL},
		Category: normalizeCategory(category),
	}

	posts, err := a.Cache.ListPosts(ctx, category)
	if err != nil {
		return d, err
	}
	d.Posts = len(posts)
	if d.Categories, err = a.Cache.ListCategories(ctx); err != nil {
		return d, err
	}
	// A broken team file fails builds, not the dashboard.
	if d.Team, err = a.teamSize(ctx); err != nil {
		a.Logger.Warnf("dashboard: %v", err)
	}

	images, err := a.Store.ListImages(ctx)
	if err != nil {
		return d, err
	}
	for _, img := range images {
		if d.Category != "" && normalizeCategory(img.Category) != d.Category {
			continue
		}
		d.Images = append(d.Images, views.ImageRow{
			Slug:        img.Slug,
			Title:       img.Title,
			Category:    img.Category,
			Fingerprint: img.Fingerprint,
			Width:       img.Width,
			Height:      img.Height,
			Size:        img.Size,
			GeneratedAt: img.GeneratedAt,
			ImageURL:    "/og/" + views.PathEscape(img.Slug) + ".png",
			ThumbURL:    "/admin/thumbs/" + views.PathEscape(img.Slug) + ".jpg",
		})
	}

	builds, err := a.Store.ListBuilds(ctx, recentBuilds)
	if err != nil {
		return d, err
	}
	for _, b := range builds {
		d.Builds = append(d.Builds, views.BuildRow{
			ID:         b.ID,
			StartedAt:  b.StartedAt,
			FinishedAt: b.FinishedAt,
			Total:      b.Total,
			Failed:     b.Failed,
			Reused:     b.Reused,
		})
	}
	return d, nil
}
