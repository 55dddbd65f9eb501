package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore stores immutable, named blobs (snapshots and their pointers).
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Put writes a blob atomically, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names of all blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.Closer
	// ReadAt reads len(p) bytes at offset off. It returns io.EOF when fewer
	// bytes are available.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// Size returns the size of the blob in bytes.
	Size() int64
}

// ReadAll reads the full content of b.
func ReadAll(ctx context.Context, b Blob) ([]byte, error) {
	size := b.Size()
	if size == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, size)
	n, err := b.ReadAt(ctx, buf, 0)
	if err != nil && (err != io.EOF || int64(n) != size) {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	if int64(n) != size {
		return nil, fmt.Errorf("read blob: short read %d of %d bytes", n, size)
	}
	return buf, nil
}

// Getter is implemented by stores that can fetch a whole blob in a single
// request instead of Open followed by ReadAt.
type Getter interface {
	Get(ctx context.Context, name string) ([]byte, error)
}

// ContentType returns the MIME type remote stores attach to name.
func ContentType(name string) string {
	switch path.Ext(name) {
	case ".vmmr":
		return "application/vnd.vecmmr.snapshot"
	case "":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// Get reads name fully, in one request when s is a Getter.
func Get(ctx context.Context, s BlobStore, name string) ([]byte, error) {
	if g, ok := s.(Getter); ok {
		return g.Get(ctx, name)
	}
	b, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.Close() }()
	return ReadAll(ctx, b)
}

// bytesBlob serves ReadAt from an in-memory slice.
type bytesBlob struct {
	data []byte
}

func (b *bytesBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if off < 0 || off >= int64(len(b.data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *bytesBlob) Close() error { return nil }

func (b *bytesBlob) Size() int64 { return int64(len(b.data)) }

// NewBytesBlob returns a Blob backed by data. The slice is not copied.
func NewBytesBlob(data []byte) Blob {
	return &bytesBlob{data: data}
}
