package storage

import (
	"context"
	"io"
)

// Storage stores product image objects.
type Storage interface {
	// Upload stores the object under input.Key and returns its public URL.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)

	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns the public URL of key.
	URL(key string) string
}

type UploadInput struct {
	Key         string
	ContentType string
	Size        int64
	Data        io.Reader
}

type UploadResult struct {
	Key string
	URL string
}
