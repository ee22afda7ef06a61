// Package storage abstracts the object store holding recording and
// attachment binaries. The migration pipeline needs three capabilities:
// copy an object, describe it, and produce a time-limited access URL.
package storage

import (
	"context"
	"errors"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

// Metadata describes one stored object.
type Metadata struct {
	Path         string    `json:"path"`
	ContentType  string    `json:"mimeType"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"updatedAt"`
}

// ObjectStore is the storage contract consumed by the pipeline and the
// upload endpoints.
type ObjectStore interface {
	// Copy duplicates the object at source under destination. The source
	// object is left untouched, so a failed or repeated resolution can
	// always re-copy from the original.
	Copy(ctx context.Context, source, destination string) error

	// Head returns object metadata, ErrObjectNotFound when absent.
	Head(ctx context.Context, path string) (Metadata, error)

	// PresignedURL produces a time-limited read URL for the object.
	PresignedURL(ctx context.Context, path string) (string, error)
}
