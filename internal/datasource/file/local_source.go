// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Local opens a test-record file from the local disk.
type Local struct{ path string }

// NewLocal returns a Local source bound to path. It is safe for concurrent
// use; every Open returns an independent descriptor.
func NewLocal(path string) *Local { return &Local{path: path} }

// Name returns the configured path.
func (l *Local) Name() string { return l.path }

// Open opens the configured path for reading.
//
// A context that is already done short-circuits without touching the
// filesystem. Filesystem errors are wrapped with the path and still satisfy
// errors.Is(err, os.ErrNotExist) and friends. The kernel is told the file will
// be read sequentially once, since ingestion always reads it end to end.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	adviseSequential(f)
	return f, nil
}
