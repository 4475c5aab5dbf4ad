package sitegen

import (
	"net/url"
	"path"
	"strings"
)

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// AssetURL joins a base URL with a file path such as "/og/hello.png",
// without adding a trailing slash.
func AssetURL(base, file string) string {
	u, err := url.Parse(base)
	if err != nil {
		return strings.TrimRight(base, "/") + file
	}
	u.Path = path.Join("/", u.Path, file)
	return u.String()
}

// PostURL returns the canonical URL of a blog post.
func PostURL(base, slug string) string {
	return BuildURL(base, "blog", slug)
}
