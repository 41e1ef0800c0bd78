package port

import (
	"context"
	"io"
	"time"
)

// ObjectStorage moves source video in and out of the worker when it does not
// live on local disk.
type ObjectStorage interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
