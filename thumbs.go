package sitegen

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"
)

const (
	thumbWidth  = 300
	jpegQuality = 80
)

// thumbnail scales a stored PNG preview down to thumbWidth and encodes it
// as JPEG for the dashboard.
func thumbnail(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > thumbWidth {
		newH := max(h*thumbWidth/w, 1)
		dst := image.NewRGBA(image.Rect(0, 0, thumbWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// handleThumb serves /admin/thumbs/<slug>.jpg from the manifest.
func (a *App) handleThumb(c echo.Context) error {
	if !IsAdmin(c) {
		return c.NoContent(http.StatusUnauthorized)
	}
	name := c.Param("*")
	slug, ok := strings.CutSuffix(name, ".jpg")
	if !ok || slug == "" {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	rec, err := a.Store.GetImage(c.Request().Context(), slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return err
	}
	data, err := thumbnail(rec.Data)
	if err != nil {
		return fmt.Errorf("thumbnail %s: %w", slug, err)
	}
	return c.Blob(http.StatusOK, "image/jpeg", data)
}
