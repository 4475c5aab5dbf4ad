// Package sink delivers generated previews to their final location.
package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/utilitygods/sitegen/og"
)

// ErrBadPath is returned for output paths that are empty, not rooted or
// would escape the sink.
var ErrBadPath = errors.New("bad output path")

// Sink stores an image under a site path such as "/og/hello.png".
type Sink interface {
	Put(ctx context.Context, sitePath string, img og.RasterImage) error
}

// Deliver adapts s to og.RunOptions.Deliver.
func Deliver(s Sink) func(context.Context, og.Task, og.RasterImage) error {
	return func(ctx context.Context, task og.Task, img og.RasterImage) error {
		return s.Put(ctx, task.Path(), img)
	}
}

// cleanPath validates a site path and returns it without the leading slash.
func cleanPath(sitePath string) (string, error) {
	if !strings.HasPrefix(sitePath, "/") {
		return "", fmt.Errorf("%w: %q is not rooted", ErrBadPath, sitePath)
	}
	if strings.Contains(sitePath, "\\") || strings.ContainsRune(sitePath, 0) {
		return "", fmt.Errorf("%w: %q", ErrBadPath, sitePath)
	}
	for _, seg := range strings.Split(sitePath[1:], "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q escapes the output root", ErrBadPath, sitePath)
		}
	}
	rel := strings.TrimPrefix(path.Clean(sitePath), "/")
	if rel == "" || strings.HasSuffix(sitePath, "/") {
		return "", fmt.Errorf("%w: %q names no file", ErrBadPath, sitePath)
	}
	return rel, nil
}

// Dir writes images below a directory on disk.
type Dir struct {
	Root string
}

// NewDir returns a sink rooted at root.
func NewDir(root string) *Dir {
	return &Dir{Root: root}
}

// Put writes img to Root/sitePath. The file is written to a temporary name
// and renamed, so readers never see a partial image.
func (d *Dir) Put(ctx context.Context, sitePath string, img og.RasterImage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, err := cleanPath(sitePath)
	if err != nil {
		return err
	}
	dst := filepath.Join(d.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(img.Data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", rel, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", rel, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("rename %s: %w", rel, err)
	}
	return nil
}

// Path returns where Put stores sitePath.
func (d *Dir) Path(sitePath string) (string, error) {
	rel, err := cleanPath(sitePath)
	if err != nil {
		return "", err
	}
	return filepath.Join(d.Root, filepath.FromSlash(rel)), nil
}
