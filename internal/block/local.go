package block

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalBackend stores segment files under a base directory on the local
// filesystem — the default backend, adapted from the original local
// filesystem block storage.
type LocalBackend struct {
	baseDir string
}

// NewLocalBackend creates a LocalBackend rooted at baseDir, creating it if
// absent.
func NewLocalBackend(baseDir string) (*LocalBackend, error) {
	if baseDir == "" {
		return nil, notFound("init", "")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, &Error{Op: "mkdir", Path: baseDir, Err: err}
	}
	return &LocalBackend{baseDir: baseDir}, nil
}

func (b *LocalBackend) fullPath(path string) string {
	clean := filepath.Clean(path)
	clean = strings.TrimPrefix(clean, string(filepath.Separator))
	return filepath.Join(b.baseDir, clean)
}

func (b *LocalBackend) Create(_ context.Context, path string) (io.WriteCloser, error) {
	full := b.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, &Error{Op: "mkdir", Path: path, Err: err}
	}
	f, err := os.Create(full)
	if err != nil {
		return nil, &Error{Op: "create", Path: path, Err: err}
	}
	return f, nil
}

func (b *LocalBackend) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(b.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound("open", path)
		}
		return nil, &Error{Op: "open", Path: path, Err: err}
	}
	return f, nil
}

func (b *LocalBackend) OpenReaderAt(_ context.Context, path string) (ReaderAtCloser, error) {
	f, err := os.Open(b.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound("open", path)
		}
		return nil, &Error{Op: "open", Path: path, Err: err}
	}
	return f, nil
}

func (b *LocalBackend) Stat(_ context.Context, path string) (Info, error) {
	info, err := os.Stat(b.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, notFound("stat", path)
		}
		return Info{}, &Error{Op: "stat", Path: path, Err: err}
	}
	return Info{Size: info.Size()}, nil
}

func (b *LocalBackend) Remove(_ context.Context, path string) error {
	if err := os.Remove(b.fullPath(path)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &Error{Op: "remove", Path: path, Err: err}
	}
	return nil
}

var _ Backend = (*LocalBackend)(nil)
