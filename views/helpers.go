package views

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// PathEscape escapes every segment of a slash-separated path.
func PathEscape(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// Bytes formats a byte count for humans ("83 kB").
func Bytes(n int) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// Ago formats t relative to now ("3 minutes ago"), or "never" when zero.
func Ago(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// BuildStatus summarizes a build row.
func BuildStatus(b BuildRow) string {
	switch {
	case b.FinishedAt.IsZero():
		return "running"
	case b.Failed > 0:
		return fmt.Sprintf("%d of %d failed", b.Failed, b.Total)
	default:
		return "ok"
	}
}

// BuildDuration returns how long a finished build took.
func BuildDuration(b BuildRow) string {
	if b.FinishedAt.IsZero() {
		return "-"
	}
	return b.FinishedAt.Sub(b.StartedAt).Round(time.Millisecond).String()
}

// ShortID returns the first 8 characters of a build id.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
