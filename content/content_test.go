package content

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

const helloPost = `---
title: Hello World
excerpt: First post
publishDate: 2024-03-05
category: Guides
author: Sam
tags: [go, images]
---

# Hello

Body text.
`

func TestBlogCollection(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "blog/hello-world.md", helloPost)
	writeFile(t, root, "blog/Nested Dir/Second Post.mdx", "---\ntitle: Second\ndraft: true\n---\n")
	writeFile(t, root, "blog/custom.md", "---\ntitle: Custom\nslug: My Custom Slug\n---\n")
	writeFile(t, root, "blog/_draft-notes.md", "not frontmatter at all")
	writeFile(t, root, "blog/_partials/inc.md", "also ignored")
	writeFile(t, root, "blog/readme.txt", "ignored extension")

	posts, err := New(root).Blog(context.Background())
	if err != nil {
		t.Fatalf("Blog: %v", err)
	}
	var slugs []string
	for _, p := range posts {
		slugs = append(slugs, p.Slug)
	}
	want := []string{"hello-world", "my-custom-slug", "nested-dir/second-post"}
	if len(slugs) != len(want) {
		t.Fatalf("slugs = %v, want %v", slugs, want)
	}
	for i := range want {
		if slugs[i] != want[i] {
			t.Errorf("slugs[%d] = %q, want %q", i, slugs[i], want[i])
		}
	}

	hello := posts[0]
	if hello.Title != "Hello World" || hello.Category != "Guides" || hello.Author != "Sam" {
		t.Errorf("hello = %+v", hello)
	}
	if got := hello.PublishDate.Time; !got.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("PublishDate = %v", got)
	}
	if len(hello.Tags) != 2 || hello.Tags[1] != "images" {
		t.Errorf("Tags = %v", hello.Tags)
	}
	if hello.Body != "# Hello\n\nBody text." {
		t.Errorf("Body = %q", hello.Body)
	}
	if !posts[2].Draft {
		t.Error("second post should be a draft")
	}
}

func TestPostsAsRecords(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "blog/hello.md", helloPost)
	writeFile(t, root, "blog/bare.md", "---\ntitle: No Category\n---\n")

	records, err := New(root).Posts(context.Background())
	if err != nil {
		t.Fatalf("Posts: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Slug != "bare" || records[0].Category != "" {
		t.Errorf("records[0] = %+v", records[0])
	}
	if records[1].Slug != "hello" || records[1].Title != "Hello World" || records[1].Category != "Guides" {
		t.Errorf("records[1] = %+v", records[1])
	}
}

func TestBlogErrors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  error
	}{
		{"missing collection", nil, ErrCollectionNotFound},
		{"no delimiters", map[string]string{"blog/a.md": "title: A\n"}, ErrInvalidEntry},
		{"unclosed", map[string]string{"blog/a.md": "---\ntitle: A\n"}, ErrInvalidEntry},
		{"bad yaml", map[string]string{"blog/a.md": "---\ntitle: [A\n---\n"}, ErrInvalidEntry},
		{"no title", map[string]string{"blog/a.md": "---\ncategory: X\n---\n"}, ErrInvalidEntry},
		{"bad date", map[string]string{"blog/a.md": "---\ntitle: A\npublishDate: someday\n---\n"}, ErrInvalidEntry},
		{"duplicate slug", map[string]string{
			"blog/Hello World.md": "---\ntitle: A\n---\n",
			"blog/hello-world.md": "---\ntitle: B\n---\n",
		}, ErrDuplicateSlug},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			for rel, body := range tt.files {
				writeFile(t, root, rel, body)
			}
			_, err := New(root).Blog(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBlogCanceled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "blog/a.md", helloPost)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(root).Blog(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestTeamCollection(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "team/jane.yaml", `draft: false
name: Jane Doe
title: Editor
avatar:
  src: /img/jane.png
  alt: Jane
publishDate: "2023-11-01"
`)
	writeFile(t, root, "team/bob.json", `{"draft": true, "name": "Bob", "title": "Writer", "avatar": {"src": "b.png", "alt": "Bob"}, "publishDate": "2024-01-02T10:00:00Z"}`)

	members, err := New(root).Team(context.Background())
	if err != nil {
		t.Fatalf("Team: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("members = %d, want 2", len(members))
	}
	if members[0].ID != "bob" || !members[0].Draft || members[0].Avatar.Src != "b.png" {
		t.Errorf("members[0] = %+v", members[0])
	}
	if members[1].ID != "jane" || members[1].Name != "Jane Doe" || members[1].PublishDate.String() != "2023-11-01" {
		t.Errorf("members[1] = %+v", members[1])
	}
}

func TestTeamRequiresName(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "team/x.yml", "title: Nobody\n")
	if _, err := New(root).Team(context.Background()); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("err = %v, want ErrInvalidEntry", err)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  Go: The Good Parts!  ", "go-the-good-parts"},
		{"4000-hours", "4000-hours"},
		{"Ünïcode Straße", "ünïcode-straße"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := SlugifyPath("Guides/Part One/_x"); got != "guides/part-one/x" {
		t.Errorf("SlugifyPath = %q", got)
	}
}

func TestSplitFrontmatter(t *testing.T) {
	front, body, err := SplitFrontmatter([]byte("\ufeff---\r\ntitle: A\r\n---\r\nbody"))
	if err != nil {
		t.Fatalf("SplitFrontmatter: %v", err)
	}
	if string(front) != "title: A\r\n" {
		t.Errorf("front = %q", front)
	}
	if string(body) != "body" {
		t.Errorf("body = %q", body)
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-03-05", "2024-03-05T00:00:00Z", "March 5, 2024", "Mar 5, 2024"} {
		d, err := ParseDate(s)
		if err != nil {
			t.Errorf("ParseDate(%q): %v", s, err)
			continue
		}
		if d.String() != "2024-03-05" {
			t.Errorf("ParseDate(%q) = %s", s, d)
		}
	}
}
