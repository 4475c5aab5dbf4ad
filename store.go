package sitegen

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ImageRecord is a generated preview kept in the manifest.
type ImageRecord struct {
	Slug        string
	Title       string
	Category    string
	Fingerprint string // og.Generator.Fingerprint of the inputs
	Checksum    string // sha256 of Data
	Width       int
	Height      int
	Size        int
	Data        []byte // nil when listed without data
	BuildID     string // empty when generated on request
	GeneratedAt time.Time
}

// BuildRecord is one batch run.
type BuildRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Failed     int
	Reused     int
}

// Store wraps the SQLite manifest of generated previews and builds.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	// Pragmas go in the DSN so every pooled connection gets them: WAL lets
	// the server read while a batch writes, and writers wait on the busy
	// timeout instead of failing with SQLITE_BUSY.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS images (
    slug TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    category TEXT NOT NULL,
    fingerprint TEXT NOT NULL,
    checksum TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    size INTEGER NOT NULL,
    data BLOB NOT NULL,
    build_id TEXT NOT NULL DEFAULT '',
    generated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS builds (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL DEFAULT '',
    total INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0
);
`)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(`ALTER TABLE builds ADD COLUMN reused INTEGER NOT NULL DEFAULT 0;`); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
			return nil
		}
		return err
	}
	return nil
}

// Checksum returns the hex sha256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SaveImage upserts rec. Checksum and Size are derived from Data.
func (s *Store) SaveImage(ctx context.Context, rec ImageRecord) error {
	if rec.GeneratedAt.IsZero() {
		rec.GeneratedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO images
(slug, title, category, fingerprint, checksum, width, height, size, data, build_id, generated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Slug, rec.Title, rec.Category, rec.Fingerprint, Checksum(rec.Data),
		rec.Width, rec.Height, len(rec.Data), rec.Data, rec.BuildID, formatTime(rec.GeneratedAt))
	if err != nil {
		return fmt.Errorf("save image %s: %w", rec.Slug, err)
	}
	return nil
}

// GetImage returns the stored preview for slug, including its data.
func (s *Store) GetImage(ctx context.Context, slug string) (ImageRecord, error) {
	rec := ImageRecord{Slug: slug}
	var generated string
	err := s.db.QueryRowContext(ctx, `SELECT title, category, fingerprint, checksum, width, height, size, data, build_id, generated_at
FROM images WHERE slug = ?`, slug).
		Scan(&rec.Title, &rec.Category, &rec.Fingerprint, &rec.Checksum, &rec.Width, &rec.Height, &rec.Size, &rec.Data, &rec.BuildID, &generated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ImageRecord{}, ErrNotFound
		}
		return ImageRecord{}, fmt.Errorf("get image %s: %w", slug, err)
	}
	rec.GeneratedAt = parseTime(generated)
	return rec, nil
}

// ListImages returns every stored preview ordered by slug, without data.
func (s *Store) ListImages(ctx context.Context) ([]ImageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT slug, title, category, fingerprint, checksum, width, height, size, build_id, generated_at
FROM images ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	var images []ImageRecord
	for rows.Next() {
		var rec ImageRecord
		var generated string
		if err := rows.Scan(&rec.Slug, &rec.Title, &rec.Category, &rec.Fingerprint, &rec.Checksum,
			&rec.Width, &rec.Height, &rec.Size, &rec.BuildID, &generated); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		rec.GeneratedAt = parseTime(generated)
		images = append(images, rec)
	}
	return images, rows.Err()
}

// DeleteImage removes the preview for slug.
func (s *Store) DeleteImage(ctx context.Context, slug string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE slug = ?`, slug)
	if err != nil {
		return fmt.Errorf("delete image %s: %w", slug, err)
	}
	return nil
}

// PruneImages deletes previews whose slug is not in keep and returns how
// many were removed.
func (s *Store) PruneImages(ctx context.Context, keep []string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("prune images: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `CREATE TEMP TABLE IF NOT EXISTS keep_slugs (slug TEXT PRIMARY KEY)`); err != nil {
		return 0, fmt.Errorf("prune images: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM keep_slugs`); err != nil {
		return 0, fmt.Errorf("prune images: %w", err)
	}
	for _, slug := range keep {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO keep_slugs (slug) VALUES (?)`, slug); err != nil {
			return 0, fmt.Errorf("prune images: %w", err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM images WHERE slug NOT IN (SELECT slug FROM keep_slugs)`)
	if err != nil {
		return 0, fmt.Errorf("prune images: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DROP TABLE keep_slugs`); err != nil {
		return 0, fmt.Errorf("prune images: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("prune images: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// StartBuild records the start of a batch.
func (s *Store) StartBuild(ctx context.Context, id string, started time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO builds (id, started_at) VALUES (?, ?)`, id, formatTime(started))
	if err != nil {
		return fmt.Errorf("start build %s: %w", id, err)
	}
	return nil
}

// FinishBuild records the outcome of a batch.
func (s *Store) FinishBuild(ctx context.Context, b BuildRecord) error {
	res, err := s.db.ExecContext(ctx, `UPDATE builds SET finished_at = ?, total = ?, failed = ?, reused = ? WHERE id = ?`,
		formatTime(b.FinishedAt), b.Total, b.Failed, b.Reused, b.ID)
	if err != nil {
		return fmt.Errorf("finish build %s: %w", b.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish build %s: %w", b.ID, ErrNotFound)
	}
	return nil
}

// ListBuilds returns up to limit builds, newest first.
func (s *Store) ListBuilds(ctx context.Context, limit int) ([]BuildRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, started_at, finished_at, total, failed, reused
FROM builds ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()

	var builds []BuildRecord
	for rows.Next() {
		var b BuildRecord
		var started, finished string
		if err := rows.Scan(&b.ID, &started, &finished, &b.Total, &b.Failed, &b.Reused); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		b.StartedAt = parseTime(started)
		b.FinishedAt = parseTime(finished)
		builds = append(builds, b)
	}
	return builds, rows.Err()
}

// timeLayout is fixed-width so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
