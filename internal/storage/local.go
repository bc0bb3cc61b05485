package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maauso/pushtotalk/internal/storage/id"
	"github.com/maauso/pushtotalk/internal/voiceinput"
)

// ErrOutsideDir is returned when asked to discard a file that does not
// live in the take directory.
var ErrOutsideDir = errors.New("path is outside the take directory")

var (
	_ Storage              = (*LocalStorage)(nil)
	_ voiceinput.TakeStore = (*LocalStorage)(nil)
)

// LocalStorage implements Storage on local disk.
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates a new LocalStorage instance.
// If dir is empty, a pushtotalk directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "pushtotalk")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve take directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0750); err != nil {
		return nil, fmt.Errorf("create take directory: %w", err)
	}

	return &LocalStorage{dir: abs}, nil
}

// Dir returns the take directory path.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// NewTakePath returns a path for a new take named take-<millis>-<random><ext>.
func (s *LocalStorage) NewTakePath(ext string) (string, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if strings.ContainsRune(ext, filepath.Separator) {
		return "", fmt.Errorf("invalid take extension %q", ext)
	}
	return filepath.Join(s.dir, id.Generate()+ext), nil
}

// Discard removes the specified takes.
// Missing files are ignored. It continues cleanup even if some files fail
// to delete, returning the first error encountered.
func (s *LocalStorage) Discard(ctx context.Context, paths ...string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := s.remove(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *LocalStorage) remove(p string) error {
	rel, err := filepath.Rel(s.dir, filepath.Clean(p))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("discard %s: %w", p, ErrOutsideDir)
	}

	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove take %s: %w", p, err)
	}
	return nil
}
