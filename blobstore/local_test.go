package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStores(t *testing.T) map[string]BlobStore {
	t.Helper()
	return map[string]BlobStore{
		"Memory": NewMemoryStore(),
		"Local":  NewLocalStore(t.TempDir()),
	}
}

func TestBlobStore_Lifecycle(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			data := []byte("hello world, this is a snapshot blob")

			require.NoError(t, store.Put(ctx, "tables/v/snap-1.vmmr", data))

			blob, err := store.Open(ctx, "tables/v/snap-1.vmmr")
			require.NoError(t, err)
			defer blob.Close()
			assert.Equal(t, int64(len(data)), blob.Size())

			buf := make([]byte, 5)
			n, err := blob.ReadAt(ctx, buf, 6)
			require.NoError(t, err)
			assert.Equal(t, 5, n)
			assert.Equal(t, "world", string(buf))

			// reading past the end reports io.EOF with the partial count
			tail := make([]byte, 10)
			n, err = blob.ReadAt(ctx, tail, int64(len(data)-4))
			assert.ErrorIs(t, err, io.EOF)
			assert.Equal(t, 4, n)

			all, err := ReadAll(ctx, blob)
			require.NoError(t, err)
			assert.Equal(t, data, all)

			// overwrite
			require.NoError(t, store.Put(ctx, "tables/v/snap-1.vmmr", []byte("v2")))
			got, err := Get(ctx, store, "tables/v/snap-1.vmmr")
			require.NoError(t, err)
			assert.Equal(t, "v2", string(got))

			require.NoError(t, store.Delete(ctx, "tables/v/snap-1.vmmr"))
			_, err = store.Open(ctx, "tables/v/snap-1.vmmr")
			assert.ErrorIs(t, err, ErrNotFound)

			// deleting twice is fine
			assert.NoError(t, store.Delete(ctx, "tables/v/snap-1.vmmr"))
		})
	}
}

func TestBlobStore_List(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, n := range []string{"tables/b/CURRENT", "tables/a/snap-2.vmmr", "tables/a/snap-1.vmmr", "other"} {
				require.NoError(t, store.Put(ctx, n, []byte(n)))
			}

			names, err := store.List(ctx, "tables/a/")
			require.NoError(t, err)
			assert.Equal(t, []string{"tables/a/snap-1.vmmr", "tables/a/snap-2.vmmr"}, names)

			all, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 4)
		})
	}
}

func TestBlobStore_EmptyBlob(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Put(ctx, "empty", nil))

			got, err := Get(ctx, store, "empty")
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestLocalStore_Layout(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewLocalStore(root)

	require.NoError(t, store.Put(ctx, "tables/v/CURRENT", []byte("snap-1")))

	raw, err := os.ReadFile(filepath.Join(root, "tables", "v", "CURRENT"))
	require.NoError(t, err)
	assert.Equal(t, "snap-1", string(raw))

	// no temp files are left behind
	entries, err := os.ReadDir(filepath.Join(root, "tables", "v"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalStore_MissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "missing"))

	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = store.Open(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_ClosedBlob(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())
	require.NoError(t, store.Put(ctx, "x", []byte("abc")))

	blob, err := store.Open(ctx, "x")
	require.NoError(t, err)
	require.NoError(t, blob.Close())
	require.NoError(t, blob.Close())

	_, err = blob.ReadAt(ctx, make([]byte, 1), 0)
	assert.ErrorIs(t, err, os.ErrClosed)
}
