// Package block provides the pluggable byte-storage backend a segment's
// `.summary` and `.data` files are written through, so a collection can
// live on local disk or on S3 without the segment writer/reader caring
// which (§6 "Filesystem layout per collection directory").
package block

import (
	"context"
	"io"
)

// ReaderAtCloser is the random-access handle a segment iterator seeks
// within (§4.4 "supports seek(offset)").
type ReaderAtCloser interface {
	io.ReaderAt
	io.Closer
}

// Info is the subset of file metadata the engine needs: whether a path
// exists and how large it is.
type Info struct {
	Size int64
}

// Backend is the storage surface a segment reader/writer is built on.
type Backend interface {
	Create(ctx context.Context, path string) (io.WriteCloser, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	OpenReaderAt(ctx context.Context, path string) (ReaderAtCloser, error)
	Stat(ctx context.Context, path string) (Info, error)
	Remove(ctx context.Context, path string) error
}

// Exists reports whether path exists on backend, treating a not-found
// error as "no", and propagating any other error.
func Exists(ctx context.Context, backend Backend, path string) (bool, error) {
	_, err := backend.Stat(ctx, path)
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, err
}
