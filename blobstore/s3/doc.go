// Package s3 provides Amazon S3 implementations of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket", func(o *s3.Options) {
//	    o.Prefix = "vecmmr/"
//	    o.Region = "us-east-1"
//	})
//
//	db := vecmmr.New(vecmmr.WithBlobStore(store))
//
// Writers that may race on the same table should wrap the store in a
// DDBCommitStore so CURRENT pointer updates become DynamoDB conditional writes.
//
// # Features
//
//   - Range reads for partial fetches
//   - Managed (multipart) uploads for large snapshots
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
