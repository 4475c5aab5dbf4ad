// Package views holds the default admin and error pages. Sites can replace
// any of them with their own templ components.
package views

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"
)

const style = `body{font-family:system-ui,sans-serif;margin:0;background:#f5f5f4;color:#1c1917}
main{max-width:960px;margin:0 auto;padding:32px 16px}
h1{font-size:24px;margin:0 0 16px}
table{width:100%;border-collapse:collapse;background:#fff;margin-bottom:24px}
th,td{text-align:left;padding:8px;border-bottom:1px solid #e7e5e4;font-size:14px;vertical-align:middle}
img.thumb{width:150px;height:auto;display:block}
.msg{padding:8px 12px;background:#ecfccb;margin-bottom:16px}
.err{color:#b91c1c}
form.inline{display:inline}
button{padding:6px 12px}`

func page(w io.Writer, title string, body func(io.Writer) error) error {
	if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><meta name="robots" content="noindex"><title>%s</title><style>%s</style></head><body><main>`,
		templ.EscapeString(title), style); err != nil {
		return err
	}
	if err := body(w); err != nil {
		return err
	}
	_, err := io.WriteString(w, `</main></body></html>`)
	return err
}

func csrfField(csrfToken string) string {
	return `<input type="hidden" name="_csrf" value="` + templ.EscapeString(csrfToken) + `">`
}

// AdminLogin renders the password form.
func AdminLogin(showError bool, csrfToken string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return page(w, "Admin login", func(w io.Writer) error {
			var b strings.Builder
			b.WriteString(`<h1>Admin</h1>`)
			if showError {
				b.WriteString(`<p class="err">Wrong password.</p>`)
			}
			b.WriteString(`<form method="post" action="/admin/login/">`)
			b.WriteString(csrfField(csrfToken))
			b.WriteString(`<input type="password" name="password" autocomplete="current-password" autofocus required> <button type="submit">Log in</button></form>`)
			_, err := io.WriteString(w, b.String())
			return err
		})
	})
}

// AdminDashboard lists generated previews and recent builds.
func AdminDashboard(d Dashboard, csrfToken string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return page(w, d.Site.Name+" previews", func(w io.Writer) error {
			var b strings.Builder
			fmt.Fprintf(&b, `<h1>%s previews</h1>`, templ.EscapeString(d.Site.Name))
			if d.Message != "" {
				fmt.Fprintf(&b, `<p class="msg">%s</p>`, templ.EscapeString(d.Message))
			}
			fmt.Fprintf(&b, `<p>%d posts, %d previews stored, %d team members.</p>`, d.Posts, len(d.Images), d.Team)
			if len(d.Categories) > 0 {
				b.WriteString(`<p class="filter">`)
				b.WriteString(filterLink("all", "/admin/", d.Category == ""))
				for _, cat := range d.Categories {
					b.WriteString(" ")
					b.WriteString(filterLink(cat, "/admin/?category="+url.QueryEscape(cat), cat == d.Category))
				}
				b.WriteString(`</p>`)
			}

			b.WriteString(`<p><form class="inline" method="post" action="/admin/rebuild/">`)
			b.WriteString(csrfField(csrfToken))
			b.WriteString(`<button type="submit">Rebuild all</button></form> `)
			b.WriteString(`<form class="inline" method="post" action="/admin/rebuild/">`)
			b.WriteString(csrfField(csrfToken))
			b.WriteString(`<input type="hidden" name="incremental" value="1"><button type="submit">Rebuild changed</button></form> `)
			b.WriteString(`<form class="inline" method="post" action="/admin/logout/">`)
			b.WriteString(csrfField(csrfToken))
			b.WriteString(`<button type="submit">Log out</button></form></p>`)

			b.WriteString(`<table><thead><tr><th></th><th>Slug</th><th>Title</th><th>Category</th><th>Size</th><th>Generated</th></tr></thead><tbody>`)
			for _, img := range d.Images {
				fmt.Fprintf(&b, `<tr><td><a href="%s"><img class="thumb" src="%s" alt="" loading="lazy"></a></td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
					templ.EscapeString(img.ImageURL),
					templ.EscapeString(img.ThumbURL),
					templ.EscapeString(img.Slug),
					templ.EscapeString(img.Title),
					templ.EscapeString(img.Category),
					Bytes(img.Size),
					Ago(img.GeneratedAt),
				)
			}
			if len(d.Images) == 0 {
				b.WriteString(`<tr><td colspan="6">No previews yet.</td></tr>`)
			}
			b.WriteString(`</tbody></table>`)

			b.WriteString(`<h1>Builds</h1><table><thead><tr><th>ID</th><th>Started</th><th>Took</th><th>Tasks</th><th>Reused</th><th>Status</th></tr></thead><tbody>`)
			for _, br := range d.Builds {
				fmt.Fprintf(&b, `<tr><td title="%s">%s</td><td>%s</td><td>%s</td><td>%d</td><td>%d</td><td>%s</td></tr>`,
					templ.EscapeString(br.ID),
					templ.EscapeString(ShortID(br.ID)),
					Ago(br.StartedAt),
					BuildDuration(br),
					br.Total,
					br.Reused,
					templ.EscapeString(BuildStatus(br)),
				)
			}
			b.WriteString(`</tbody></table>`)
			_, err := io.WriteString(w, b.String())
			return err
		})
	})
}

func filterLink(label, href string, active bool) string {
	if active {
		return `<strong>` + templ.EscapeString(label) + `</strong>`
	}
	return `<a href="` + templ.EscapeString(href) + `">` + templ.EscapeString(label) + `</a>`
}

// NotFound renders the 404 page.
func NotFound() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return page(w, "Not found", func(w io.Writer) error {
			_, err := io.WriteString(w, `<h1>Not found</h1><p>There is nothing at this address.</p>`)
			return err
		})
	})
}

// ServerError renders the 500 page.
func ServerError() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return page(w, "Server error", func(w io.Writer) error {
			_, err := io.WriteString(w, `<h1>Something went wrong</h1><p>Please try again later.</p>`)
			return err
		})
	})
}
