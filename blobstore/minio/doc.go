// Package minio stores snapshots in MinIO or any other S3-compatible
// service (Ceph, Garage, SeaweedFS) through the MinIO client.
//
// Snapshot blobs are uploaded with their own content type and read back with
// a single GET; CURRENT pointers are small text objects. Unlike the s3
// package there is no DynamoDB commit log, so two writers saving the same
// table race on its pointer.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store := minioblob.NewStore(client, "vectors", "vecmmr/")
//	if err := store.EnsureBucket(ctx, ""); err != nil {
//	    log.Fatal(err)
//	}
//	db, _ := vecmmr.New(vecmmr.WithBlobStore(store))
package minio
