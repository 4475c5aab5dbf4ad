package sitegen

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/utilitygods/sitegen/content"
	"github.com/utilitygods/sitegen/og"
)

// BlogSource lists the blog collection.
type BlogSource interface {
	Blog(ctx context.Context) ([]content.BlogPost, error)
}

// PostCache is an in-memory cache of the blog collection with TTL. It is
// the og.PostSource of both the server and batch builds.
type PostCache struct {
	mu      sync.RWMutex
	posts   []content.BlogPost
	fetched time.Time
	ttl     time.Duration
	source  BlogSource
}

// NewPostCache creates a PostCache over src.
func NewPostCache(src BlogSource, ttl time.Duration) *PostCache {
	return &PostCache{source: src, ttl: ttl}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.mu.Unlock()
}

// ensureLoaded returns cached posts after ensuring the cache is fresh.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *PostCache) ensureLoaded(ctx context.Context) ([]content.BlogPost, error) {
	c.mu.RLock()
	if c.valid() {
		posts := c.posts
		c.mu.RUnlock()
		return posts, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.posts, nil
	}
	posts, err := c.source.Blog(ctx)
	if err != nil {
		return nil, err
	}
	sorted := make([]content.BlogPost, len(posts))
	copy(sorted, posts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Slug < sorted[j].Slug })
	c.posts = sorted
	c.fetched = time.Now()
	return sorted, nil
}

// ListPosts returns every post sorted by slug, optionally filtered by
// category (case-insensitive).
func (c *PostCache) ListPosts(ctx context.Context, category string) ([]content.BlogPost, error) {
	posts, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return posts, nil
	}
	normalized := normalizeCategory(category)
	var filtered []content.BlogPost
	for _, p := range posts {
		if normalizeCategory(p.Category) == normalized {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// ListCategories returns the distinct non-empty categories, lowercased and
// sorted.
func (c *PostCache) ListCategories(ctx context.Context) ([]string, error) {
	posts, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, p := range posts {
		if cat := normalizeCategory(p.Category); cat != "" {
			set[cat] = struct{}{}
		}
	}
	cats := make([]string, 0, len(set))
	for cat := range set {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats, nil
}

// GetPost returns a single post by slug from the cache.
func (c *PostCache) GetPost(ctx context.Context, slug string) (content.BlogPost, error) {
	posts, err := c.ensureLoaded(ctx)
	if err != nil {
		return content.BlogPost{}, err
	}
	i := sort.Search(len(posts), func(i int) bool { return posts[i].Slug >= slug })
	if i < len(posts) && posts[i].Slug == slug {
		return posts[i], nil
	}
	return content.BlogPost{}, ErrNotFound
}

// Posts implements og.PostSource.
func (c *PostCache) Posts(ctx context.Context) ([]og.PostRecord, error) {
	posts, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]og.PostRecord, len(posts))
	for i, p := range posts {
		records[i] = p.Record()
	}
	return records, nil
}

func normalizeCategory(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
