package storage

import "context"

// ObjectStore abstracts the blob store holding source and result images. The
// filesystem implementation covers development and single-node deployments;
// an S3-compatible implementation can sit behind the same interface.
type ObjectStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// URL returns a client-resolvable location for the stored key. ttlSeconds
	// bounds the lifetime for stores that sign their URLs; the filesystem
	// store ignores it.
	URL(key string, ttlSeconds int) string
}
