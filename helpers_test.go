package sitegen

import "testing"

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base     string
		segments []string
		want     string
	}{
		{"https://example.com", nil, "https://example.com"},
		{"https://example.com", []string{"blog"}, "https://example.com/blog/"},
		{"https://example.com/", []string{"blog", "hello"}, "https://example.com/blog/hello/"},
		{"https://example.com/sub", []string{"blog"}, "https://example.com/sub/blog/"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segments...); got != tt.want {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.base, tt.segments, got, tt.want)
		}
	}
}

func TestAssetURL(t *testing.T) {
	tests := []struct {
		base, file, want string
	}{
		{"https://example.com", "/og/hello.png", "https://example.com/og/hello.png"},
		{"https://example.com/", "/sitemap.xml", "https://example.com/sitemap.xml"},
		{"https://example.com/sub", "/og/a/b.png", "https://example.com/sub/og/a/b.png"},
	}
	for _, tt := range tests {
		if got := AssetURL(tt.base, tt.file); got != tt.want {
			t.Errorf("AssetURL(%q, %q) = %q, want %q", tt.base, tt.file, got, tt.want)
		}
	}
}

func TestPostURL(t *testing.T) {
	if got := PostURL("https://example.com", "guides/hello"); got != "https://example.com/blog/guides/hello/" {
		t.Errorf("PostURL = %q", got)
	}
}
