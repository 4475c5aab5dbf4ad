package sitegen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/utilitygods/sitegen/og"
)

// MIME type of the vector preview.
const contentTypeSVG = "image/svg+xml"

// handlePreview serves /og/<slug>.png and /og/<slug>.svg.
func (a *App) handlePreview(c echo.Context) error {
	name := c.Param("*")
	ext := path.Ext(name)
	slug := strings.TrimSuffix(name, ext)
	if slug == "" || (ext != ".png" && ext != ".svg") {
		return echo.NewHTTPError(http.StatusNotFound)
	}

	ctx := c.Request().Context()
	post, err := a.Cache.GetPost(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return err
	}

	if ext == ".svg" {
		doc, err := a.Generator.Vector(ctx, post.Record())
		if err != nil {
			return fmt.Errorf("preview %s: %w", name, err)
		}
		c.Response().Header().Set(echo.HeaderContentType, contentTypeSVG)
		c.Response().Header().Set("Cache-Control", "public, max-age=3600")
		c.Response().WriteHeader(http.StatusOK)
		return doc.SVG().Render(ctx, c.Response().Writer)
	}

	img, err := a.Preview(ctx, post.Record())
	if err != nil {
		return fmt.Errorf("preview %s: %w", name, err)
	}
	for k, v := range img.Header() {
		c.Response().Header()[k] = v
	}
	return c.Blob(http.StatusOK, img.ContentType, img.Data)
}

// Preview returns the stored preview of post when its fingerprint and
// checksum match, otherwise generates and stores a new one. Nothing is stored on failure.
func (a *App) Preview(ctx context.Context, post og.PostRecord) (og.RasterImage, error) {
	fingerprint := a.Generator.Fingerprint(post)
	if rec, err := a.Store.GetImage(ctx, post.Slug); err == nil {
		if img, ok := storedPreview(rec, fingerprint); ok {
			return img, nil
		}
		a.Logger.Warnf("stored preview %s is stale or corrupt, regenerating", post.Slug)
	}

	img, err := a.Generator.Generate(ctx, post)
	if err != nil {
		return og.RasterImage{}, err
	}
	if err := a.Store.SaveImage(ctx, ImageRecord{
		Slug:        post.Slug,
		Title:       post.Title,
		Category:    post.Category,
		Fingerprint: fingerprint,
		Width:       img.Width,
		Height:      img.Height,
		Data:        img.Data,
	}); err != nil {
		a.Logger.Errorf("store preview %s: %v", post.Slug, err)
	}
	return img, nil
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context(), "")
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleRobots(c echo.Context) error {
	body := "User-agent: *\nAllow: /\nDisallow: /admin/\n\nSitemap: " + AssetURL(a.Config.URL, "/sitemap.xml") + "\n"
	return c.String(http.StatusOK, body)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
// HEAD requests get the headers only.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	if c.Request().Method == http.MethodHead {
		return nil
	}
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}
