package resource

import (
	"context"

	"github.com/hupe1980/vecmmr/blobstore"
)

// ThrottledStore wraps a BlobStore so that blob writes and reads are paid
// for against the controller's IO limit.
type ThrottledStore struct {
	blobstore.BlobStore
	rc *Controller
}

// NewThrottledStore returns store unchanged when rc has no IO limit.
func NewThrottledStore(store blobstore.BlobStore, rc *Controller) blobstore.BlobStore {
	if rc == nil || rc.ioLimiter == nil {
		return store
	}
	return &ThrottledStore{BlobStore: store, rc: rc}
}

// Put waits for len(data) bytes of IO budget before writing.
func (s *ThrottledStore) Put(ctx context.Context, name string, data []byte) error {
	if err := s.rc.AcquireIO(ctx, len(data)); err != nil {
		return err
	}
	return s.BlobStore.Put(ctx, name, data)
}

// Open returns a blob whose reads are throttled.
func (s *ThrottledStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	b, err := s.BlobStore.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &throttledBlob{Blob: b, rc: s.rc}, nil
}

type throttledBlob struct {
	blobstore.Blob
	rc *Controller
}

func (b *throttledBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := b.rc.AcquireIO(ctx, len(p)); err != nil {
		return 0, err
	}
	return b.Blob.ReadAt(ctx, p, off)
}
