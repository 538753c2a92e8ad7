package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("storage: object not found")

// Object is a fetched blob. Callers must close Body.
type Object struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// BlobStore fetches stored assets by bucket and key.
type BlobStore interface {
	GetObject(ctx context.Context, bucket, key string) (*Object, error)
}

// Presigner issues time-limited download URLs.
type Presigner interface {
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}
