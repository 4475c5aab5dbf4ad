// Package content reads the site's content collections: Markdown blog posts
// with YAML frontmatter and YAML/JSON team data files.
package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/utilitygods/sitegen/og"
)

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrInvalidEntry       = errors.New("invalid entry")
	ErrDuplicateSlug      = errors.New("duplicate slug")
)

// Collection directory names under the content root.
const (
	BlogCollection = "blog"
	TeamCollection = "team"
)

// File extensions read for each collection.
var (
	BlogExtensions = []string{".md", ".mdx"}
	TeamExtensions = []string{".yaml", ".yml", ".json"}
)

// Collections reads collections from subdirectories of Root.
type Collections struct {
	Root string
}

// New returns the collections rooted at dir.
func New(dir string) *Collections {
	return &Collections{Root: dir}
}

// Dir returns the directory of the named collection.
func (c *Collections) Dir(name string) string {
	return filepath.Join(c.Root, name)
}

// Blog parses every blog entry, drafts included, sorted by slug.
func (c *Collections) Blog(ctx context.Context) ([]BlogPost, error) {
	files, err := c.files(ctx, BlogCollection, BlogExtensions)
	if err != nil {
		return nil, err
	}
	posts := make([]BlogPost, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.rel, err)
		}
		post, err := ParseBlogPost(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.rel, err)
		}
		post.Path = f.path
		if post.Slug == "" {
			post.Slug = f.slug
		} else {
			post.Slug = SlugifyPath(post.Slug)
		}
		posts = append(posts, post)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].Slug < posts[j].Slug })
	for i := 1; i < len(posts); i++ {
		if posts[i].Slug == posts[i-1].Slug {
			return nil, fmt.Errorf("%w: %q (%s, %s)", ErrDuplicateSlug, posts[i].Slug, posts[i-1].Path, posts[i].Path)
		}
	}
	return posts, nil
}

// Team parses every team member, sorted by id.
func (c *Collections) Team(ctx context.Context) ([]TeamMember, error) {
	files, err := c.files(ctx, TeamCollection, TeamExtensions)
	if err != nil {
		return nil, err
	}
	members := make([]TeamMember, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.rel, err)
		}
		m, err := ParseTeamMember(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.rel, err)
		}
		m.ID = f.slug
		m.Path = f.path
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	for i := 1; i < len(members); i++ {
		if members[i].ID == members[i-1].ID {
			return nil, fmt.Errorf("%w: %q (%s, %s)", ErrDuplicateSlug, members[i].ID, members[i-1].Path, members[i].Path)
		}
	}
	return members, nil
}

// Posts lists the blog collection as preview inputs.
func (c *Collections) Posts(ctx context.Context) ([]og.PostRecord, error) {
	posts, err := c.Blog(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]og.PostRecord, len(posts))
	for i, p := range posts {
		out[i] = p.Record()
	}
	return out, nil
}

type entryFile struct {
	path string
	rel  string
	slug string
}

func (c *Collections) files(ctx context.Context, name string, exts []string) ([]entryFile, error) {
	dir := c.Dir(name)
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, dir)
		}
		return nil, fmt.Errorf("stat collection %s: %w", name, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrCollectionNotFound, dir)
	}

	var files []entryFile
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == dir {
			return nil
		}
		if Ignored(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !hasExt(d.Name(), exts) {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		files = append(files, entryFile{path: p, rel: rel, slug: SlugifyPath(strings.TrimSuffix(rel, path.Ext(rel)))})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk collection %s: %w", name, err)
	}
	return files, nil
}

// Ignored reports whether a file or directory name is excluded from
// collections: names starting with "_" or ".".
func Ignored(name string) bool {
	return strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// Slugify converts a title or file name to a URL-safe slug. Letters are
// lowercased, any run of other characters becomes a single hyphen.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// SlugifyPath slugifies every "/"-separated segment of p, dropping the
// segments that slugify to nothing.
func SlugifyPath(p string) string {
	var parts []string
	for _, seg := range strings.Split(p, "/") {
		if s := Slugify(seg); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}
