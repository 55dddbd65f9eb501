// Package blobstore provides the storage abstraction for table snapshots.
//
// BlobStore reads and writes whole, immutable blobs by name. Implementations
// must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process, for tests and ephemeral databases
//   - LocalStore: local filesystem with mmap reads and atomic rename writes
//   - minio.Store: MinIO and other S3-compatible services
//   - s3.Store: Amazon S3 with range reads and managed uploads
//   - s3.DDBCommitStore: S3 plus DynamoDB for atomic CURRENT pointer commits
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
