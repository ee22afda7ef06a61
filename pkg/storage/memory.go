package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-process ObjectStore used by tests and local runs.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]Metadata
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Metadata)}
}

// Put seeds an object. Tests use it to stage sources before a resolve run.
func (m *MemoryStore) Put(path, contentType string, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = Metadata{
		Path:         path,
		ContentType:  contentType,
		Size:         size,
		LastModified: time.Now().UTC(),
	}
}

func (m *MemoryStore) Copy(ctx context.Context, source, destination string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.objects[source]
	if !ok {
		return fmt.Errorf("copy %s: %w", source, ErrObjectNotFound)
	}
	dst := src
	dst.Path = destination
	dst.LastModified = time.Now().UTC()
	m.objects[destination] = dst
	return nil
}

func (m *MemoryStore) Head(ctx context.Context, path string) (Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.objects[path]
	if !ok {
		return Metadata{}, ErrObjectNotFound
	}
	return meta, nil
}

func (m *MemoryStore) PresignedURL(ctx context.Context, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[path]; !ok {
		return "", ErrObjectNotFound
	}
	return "https://storage.local/" + path, nil
}

// Exists reports whether an object is present, for test assertions.
func (m *MemoryStore) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[path]
	return ok
}
