// Package file implements a local filesystem-backed data source.
//
// Readers returned by Open hash every byte they hand out with xxh3, so a load
// can report a fingerprint of exactly the input it consumed, and they report
// read failures as *loaderr.IOError carrying the path.
package file

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/zeebo/xxh3"

	"sotorrent/internal/datasource"
	"sotorrent/internal/loaderr"
)

// Local is a filesystem data source that opens files from the local disk.
type Local struct{ path string }

var _ datasource.Source = (*Local)(nil)

// NewLocal returns a new Local data source bound to the provided filesystem
// path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the bound path.
func (l *Local) Path() string { return l.path }

// Open opens the configured path for reading.
//
// Behavior:
//   - If the context is already canceled, Open returns the context error
//     without touching the filesystem.
//   - A missing or unreadable file is a *loaderr.IOError wrapping the
//     os error, so errors.Is(err, os.ErrNotExist) still works.
//   - The kernel is told the file will be read sequentially.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	r, err := l.OpenReader(ctx)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// OpenReader is Open with the concrete return type.
func (l *Local) OpenReader(ctx context.Context) (*Reader, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, &loaderr.IOError{Path: l.path, Err: err}
	}
	adviseSequential(f)
	return &Reader{f: f, path: l.path, h: xxh3.New()}, nil
}

// Reader is an open source file.
type Reader struct {
	f    *os.File
	path string
	h    *xxh3.Hasher
	n    int64
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.f.Read(p)
	if n > 0 {
		_, _ = r.h.Write(p[:n])
		r.n += int64(n)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return n, &loaderr.IOError{Path: r.path, Err: err}
	}
	return n, err
}

// Digest returns the xxh3 hash of the bytes read so far.
func (r *Reader) Digest() uint64 { return r.h.Sum64() }

// BytesRead returns the number of bytes read so far.
func (r *Reader) BytesRead() int64 { return r.n }

// Close closes the file.
func (r *Reader) Close() error { return r.f.Close() }
