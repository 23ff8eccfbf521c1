// Package blobstore abstracts where index snapshots live.
//
// BlobStore is the interface for reading and writing immutable blobs and the
// small CURRENT pointer that names the latest snapshot. Implementations must
// be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-memory, for tests
//   - LocalStore: local filesystem with atomic writes and mmap reads
//   - CachingStore: block cache in front of a remote store
//   - s3.Store and s3.DDBCommitStore: Amazon S3, optionally with DynamoDB commits
//   - minio.Store: MinIO and other S3-compatible servers
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Blobs that can expose their bytes directly implement Mappable; ReadAll
// uses it to avoid a copy.
package blobstore
