package sitegen

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/utilitygods/sitegen/content"
	"github.com/utilitygods/sitegen/og"
)

type sitemapURLSet struct {
	XMLName    xml.Name     `xml:"urlset"`
	XMLNS      string       `xml:"xmlns,attr"`
	XMLNSImage string       `xml:"xmlns:image,attr"`
	URLs       []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string         `xml:"loc"`
	LastMod string         `xml:"lastmod,omitempty"`
	Images  []sitemapImage `xml:"image:image,omitempty"`
}

type sitemapImage struct {
	Loc string `xml:"image:loc"`
}

// sitemap lists the home page and every post with its preview image.
func sitemap(base string, posts []content.BlogPost) sitemapURLSet {
	urls := []sitemapURL{
		{Loc: BuildURL(base)},
	}
	for _, p := range posts {
		if p.Draft {
			continue
		}
		task := og.Task{Slug: p.Slug, Post: p.Record()}
		urls = append(urls, sitemapURL{
			Loc:     PostURL(base, p.Slug),
			LastMod: p.PublishDate.String(),
			Images:  []sitemapImage{{Loc: AssetURL(base, task.Path())}},
		})
	}
	return sitemapURLSet{
		XMLNS:      "http://www.sitemaps.org/schemas/sitemap/0.9",
		XMLNSImage: "http://www.google.com/schemas/sitemap-image/1.1",
		URLs:       urls,
	}
}

func (a *App) renderSitemap(c echo.Context, posts []content.BlogPost) error {
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	if _, err := c.Response().Write([]byte(xml.Header)); err != nil {
		return err
	}
	return xml.NewEncoder(c.Response()).Encode(sitemap(a.Config.URL, posts))
}
