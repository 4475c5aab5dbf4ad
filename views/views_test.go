package views

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func render(t *testing.T, c interface {
	Render(context.Context, io.Writer) error
}) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestAdminLoginEscapesToken(t *testing.T) {
	out := render(t, AdminLogin(true, `"><script>`))
	if strings.Contains(out, "<script>") {
		t.Error("csrf token was not escaped")
	}
	if !strings.Contains(out, "Wrong password") {
		t.Error("error message missing")
	}
}

func TestAdminDashboard(t *testing.T) {
	now := time.Now()
	out := render(t, AdminDashboard(Dashboard{
		Site:  SiteConfig{Name: "utilitygods"},
		Posts: 2,
		Images: []ImageRow{{
			Slug:     "hello",
			Title:    "Hello <World>",
			Size:     2048,
			ImageURL: "/og/hello.png",
			ThumbURL: "/admin/thumbs/hello.jpg",
		}},
		Builds: []BuildRow{{
			ID:         "0123456789abcdef",
			StartedAt:  now.Add(-time.Second),
			FinishedAt: now,
			Total:      2,
			Failed:     1,
		}},
		Message: "rebuilt",
	}, "tok"))

	for _, want := range []string{
		"Hello &lt;World&gt;",
		`src="/admin/thumbs/hello.jpg"`,
		"2.0 kB",
		"01234567",
		"1 of 2 failed",
		"rebuilt",
		`value="tok"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestAdminDashboardCategoryFilter(t *testing.T) {
	out := render(t, AdminDashboard(Dashboard{
		Site:       SiteConfig{Name: "utilitygods"},
		Posts:      1,
		Team:       3,
		Categories: []string{"guides", "news & notes"},
		Category:   "guides",
	}, "tok"))

	for _, want := range []string{
		"3 team members",
		`<a href="/admin/">all</a>`,
		`<strong>guides</strong>`,
		`<a href="/admin/?category=news+%26+notes">news &amp; notes</a>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestBuildStatus(t *testing.T) {
	tests := []struct {
		row  BuildRow
		want string
	}{
		{BuildRow{Total: 3}, "running"},
		{BuildRow{Total: 3, FinishedAt: time.Now()}, "ok"},
		{BuildRow{Total: 3, Failed: 2, FinishedAt: time.Now()}, "2 of 3 failed"},
	}
	for _, tt := range tests {
		if got := BuildStatus(tt.row); got != tt.want {
			t.Errorf("BuildStatus(%+v) = %q, want %q", tt.row, got, tt.want)
		}
	}
}

func TestPathEscape(t *testing.T) {
	if got := PathEscape("guides/hello world"); got != "guides/hello%20world" {
		t.Errorf("PathEscape = %q", got)
	}
}
