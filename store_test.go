package sitegen

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "test_og.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore(t *testing.T) {
	s := setupTestStore(t)
	if s.db == nil {
		t.Fatal("db should not be nil")
	}
}

func TestNewStoreReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "og.db")
	for i := 0; i < 2; i++ {
		s, err := NewStore(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		s.Close()
	}
}

func TestSaveAndGetImage(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	rec := ImageRecord{
		Slug:        "guides/hello",
		Title:       "Hello World",
		Category:    "Guides",
		Fingerprint: "abc",
		Width:       1200,
		Height:      630,
		Data:        []byte("\x89PNG data"),
		BuildID:     "build-1",
	}
	if err := s.SaveImage(ctx, rec); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}

	got, err := s.GetImage(ctx, "guides/hello")
	if err != nil {
		t.Fatalf("GetImage failed: %v", err)
	}
	if got.Title != rec.Title {
		t.Errorf("Title = %q, want %q", got.Title, rec.Title)
	}
	if got.Category != rec.Category {
		t.Errorf("Category = %q, want %q", got.Category, rec.Category)
	}
	if got.Fingerprint != rec.Fingerprint {
		t.Errorf("Fingerprint = %q, want %q", got.Fingerprint, rec.Fingerprint)
	}
	if !bytes.Equal(got.Data, rec.Data) {
		t.Errorf("Data = %q, want %q", got.Data, rec.Data)
	}
	if got.Size != len(rec.Data) {
		t.Errorf("Size = %d, want %d", got.Size, len(rec.Data))
	}
	if got.Checksum != Checksum(rec.Data) {
		t.Errorf("Checksum = %q, want %q", got.Checksum, Checksum(rec.Data))
	}
	if got.Width != 1200 || got.Height != 630 {
		t.Errorf("size = %dx%d, want 1200x630", got.Width, got.Height)
	}
	if got.BuildID != "build-1" {
		t.Errorf("BuildID = %q, want build-1", got.BuildID)
	}
	if got.GeneratedAt.IsZero() {
		t.Error("GeneratedAt should be set")
	}
}

func TestSaveImageReplaces(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"Old", "New"} {
		if err := s.SaveImage(ctx, ImageRecord{Slug: "a", Title: title, Data: []byte(title)}); err != nil {
			t.Fatalf("SaveImage: %v", err)
		}
	}
	got, err := s.GetImage(ctx, "a")
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if got.Title != "New" || string(got.Data) != "New" {
		t.Errorf("got %q / %q, want New / New", got.Title, got.Data)
	}
	images, _ := s.ListImages(ctx)
	if len(images) != 1 {
		t.Errorf("images = %d, want 1", len(images))
	}
}

func TestGetImageNotFound(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.GetImage(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListImagesOmitsData(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	for _, slug := range []string{"b", "a", "c"} {
		if err := s.SaveImage(ctx, ImageRecord{Slug: slug, Data: []byte(slug)}); err != nil {
			t.Fatal(err)
		}
	}
	images, err := s.ListImages(ctx)
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	if len(images) != 3 {
		t.Fatalf("images = %d, want 3", len(images))
	}
	for i, want := range []string{"a", "b", "c"} {
		if images[i].Slug != want {
			t.Errorf("images[%d].Slug = %q, want %q", i, images[i].Slug, want)
		}
		if images[i].Data != nil {
			t.Errorf("images[%d].Data should be nil", i)
		}
		if images[i].Size != 1 {
			t.Errorf("images[%d].Size = %d, want 1", i, images[i].Size)
		}
	}
}

func TestDeleteImage(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	if err := s.SaveImage(ctx, ImageRecord{Slug: "a", Data: []byte("x")}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteImage(ctx, "a"); err != nil {
		t.Fatalf("DeleteImage: %v", err)
	}
	if _, err := s.GetImage(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteImage(ctx, "never-existed"); err != nil {
		t.Errorf("deleting a missing image: %v", err)
	}
}

func TestPruneImages(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	for _, slug := range []string{"a", "b", "c", "d"} {
		if err := s.SaveImage(ctx, ImageRecord{Slug: slug, Data: []byte(slug)}); err != nil {
			t.Fatal(err)
		}
	}
	n, err := s.PruneImages(ctx, []string{"b", "d", "new"})
	if err != nil {
		t.Fatalf("PruneImages: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned = %d, want 2", n)
	}
	images, _ := s.ListImages(ctx)
	if len(images) != 2 || images[0].Slug != "b" || images[1].Slug != "d" {
		t.Errorf("remaining = %+v", images)
	}

	// A second prune on the same connection pool must not trip over the
	// scratch table.
	if _, err := s.PruneImages(ctx, []string{"b"}); err != nil {
		t.Fatalf("second PruneImages: %v", err)
	}
}

func TestBuilds(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"first", "second", "third"} {
		if err := s.StartBuild(ctx, id, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("StartBuild: %v", err)
		}
	}
	err := s.FinishBuild(ctx, BuildRecord{
		ID:         "second",
		FinishedAt: base.Add(90 * time.Second),
		Total:      10,
		Failed:     1,
		Reused:     4,
	})
	if err != nil {
		t.Fatalf("FinishBuild: %v", err)
	}
	if err := s.FinishBuild(ctx, BuildRecord{ID: "nope", FinishedAt: base}); !errors.Is(err, ErrNotFound) {
		t.Errorf("FinishBuild unknown err = %v, want ErrNotFound", err)
	}

	builds, err := s.ListBuilds(ctx, 2)
	if err != nil {
		t.Fatalf("ListBuilds: %v", err)
	}
	if len(builds) != 2 {
		t.Fatalf("builds = %d, want 2", len(builds))
	}
	if builds[0].ID != "third" || builds[1].ID != "second" {
		t.Errorf("order = %s, %s; want third, second", builds[0].ID, builds[1].ID)
	}
	second := builds[1]
	if second.Total != 10 || second.Failed != 1 || second.Reused != 4 {
		t.Errorf("second = %+v", second)
	}
	if !second.StartedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("StartedAt = %v", second.StartedAt)
	}
	if !second.FinishedAt.Equal(base.Add(90 * time.Second)) {
		t.Errorf("FinishedAt = %v", second.FinishedAt)
	}
	if !builds[0].FinishedAt.IsZero() {
		t.Errorf("unfinished build has FinishedAt %v", builds[0].FinishedAt)
	}
}

func TestFormatTimeSortsAsText(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 5, 100_000_000, time.UTC)
	b := time.Date(2024, 1, 1, 0, 0, 5, 120_000_000, time.UTC)
	if !(formatTime(a) < formatTime(b)) {
		t.Errorf("%s should sort before %s", formatTime(a), formatTime(b))
	}
	if got := parseTime(formatTime(b)); !got.Equal(b) {
		t.Errorf("parseTime = %v, want %v", got, b)
	}
}
