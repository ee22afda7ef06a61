package storage

import (
	"context"
	"fmt"

	"github.com/sparrowhealth/clinic-platform/pkg/common/config"
)

// NewFromConfig selects the ObjectStore backend. An empty endpoint with no
// bucket falls back to the in-memory store so local runs need no S3.
func NewFromConfig(ctx context.Context, backend string, cfg *config.Config) (ObjectStore, error) {
	switch backend {
	case "", "s3":
		return NewS3Store(ctx, cfg)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", backend)
	}
}
