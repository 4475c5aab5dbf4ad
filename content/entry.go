package content

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/utilitygods/sitegen/og"
	"gopkg.in/yaml.v3"
)

// BlogPost is one entry of the blog collection.
type BlogPost struct {
	Slug        string   `yaml:"slug,omitempty"`
	Title       string   `yaml:"title"`
	Excerpt     string   `yaml:"excerpt,omitempty"`
	PublishDate Date     `yaml:"publishDate,omitempty"`
	Image       string   `yaml:"image,omitempty"`
	Category    string   `yaml:"category,omitempty"`
	Author      string   `yaml:"author,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
	Draft       bool     `yaml:"draft"`

	Path string `yaml:"-"`
	Body string `yaml:"-"` // raw Markdown after the frontmatter
}

// Record returns the fields the preview generator draws.
func (p BlogPost) Record() og.PostRecord {
	return og.PostRecord{Slug: p.Slug, Title: p.Title, Category: p.Category}
}

// Avatar is a team member's picture.
type Avatar struct {
	Src string `yaml:"src"`
	Alt string `yaml:"alt"`
}

// TeamMember is one entry of the team data collection.
type TeamMember struct {
	ID          string `yaml:"-"`
	Draft       bool   `yaml:"draft"`
	Name        string `yaml:"name"`
	Title       string `yaml:"title"`
	Avatar      Avatar `yaml:"avatar"`
	PublishDate Date   `yaml:"publishDate"`

	Path string `yaml:"-"`
}

var delimiter = []byte("---")

// SplitFrontmatter separates the YAML block delimited by "---" lines at the
// start of data from the body that follows it.
func SplitFrontmatter(data []byte) (front, body []byte, err error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if !bytes.HasPrefix(trimmed, delimiter) {
		return nil, nil, fmt.Errorf("%w: missing opening ---", ErrInvalidEntry)
	}
	rest := trimmed[len(delimiter):]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 || len(bytes.TrimSpace(rest[:nl])) != 0 {
		return nil, nil, fmt.Errorf("%w: missing opening ---", ErrInvalidEntry)
	}
	rest = rest[nl+1:]

	for off := 0; off <= len(rest); {
		end := bytes.IndexByte(rest[off:], '\n')
		line := rest[off:]
		if end >= 0 {
			line = rest[off : off+end]
		}
		if bytes.Equal(bytes.TrimRight(line, " \t\r"), delimiter) {
			front = rest[:off]
			if end >= 0 {
				body = rest[off+end+1:]
			}
			return front, body, nil
		}
		if end < 0 {
			break
		}
		off += end + 1
	}
	return nil, nil, fmt.Errorf("%w: missing closing ---", ErrInvalidEntry)
}

// ParseBlogPost parses a Markdown file with frontmatter. Title is required.
func ParseBlogPost(data []byte) (BlogPost, error) {
	front, body, err := SplitFrontmatter(data)
	if err != nil {
		return BlogPost{}, err
	}
	var post BlogPost
	if err := yaml.Unmarshal(front, &post); err != nil {
		return BlogPost{}, fmt.Errorf("%w: frontmatter: %w", ErrInvalidEntry, err)
	}
	if strings.TrimSpace(post.Title) == "" {
		return BlogPost{}, fmt.Errorf("%w: missing required field: title", ErrInvalidEntry)
	}
	post.Body = string(bytes.TrimSpace(body))
	return post, nil
}

// ParseTeamMember parses a YAML or JSON data file. Name is required.
func ParseTeamMember(data []byte) (TeamMember, error) {
	var m TeamMember
	if err := yaml.Unmarshal(data, &m); err != nil {
		return TeamMember{}, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	if strings.TrimSpace(m.Name) == "" {
		return TeamMember{}, fmt.Errorf("%w: missing required field: name", ErrInvalidEntry)
	}
	return m, nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006/01/02",
}

// Date is a frontmatter date. It accepts ISO dates, RFC 3339 timestamps and
// the long English form ("March 5, 2024").
type Date struct {
	time.Time
}

// ParseDate parses s with the accepted layouts.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{t}, nil
		}
	}
	return Date{}, fmt.Errorf("%w: bad date %q", ErrInvalidEntry, s)
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: date must be a string (line %d)", ErrInvalidEntry, value.Line)
	}
	if value.Value == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(value.Value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalYAML() (any, error) {
	if d.IsZero() {
		return "", nil
	}
	return d.Format("2006-01-02"), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}
