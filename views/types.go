package views

import "time"

// SiteConfig holds the site-wide settings the views print.
type SiteConfig struct {
	Name string
	URL  string
}

// ImageRow is one generated preview in the dashboard.
type ImageRow struct {
	Slug        string
	Title       string
	Category    string
	Fingerprint string
	Width       int
	Height      int
	Size        int
	GeneratedAt time.Time
	ImageURL    string // public preview path, e.g. /og/hello.png
	ThumbURL    string // admin thumbnail path
}

// BuildRow is one batch run in the dashboard.
type BuildRow struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Total      int
	Failed     int
	Reused     int
}

// Dashboard is everything the admin dashboard shows.
type Dashboard struct {
	Site       SiteConfig
	Posts      int
	Team       int
	Categories []string // lowercased, sorted
	Category   string   // active filter, empty for all
	Images     []ImageRow
	Builds     []BuildRow
	Message    string
}
