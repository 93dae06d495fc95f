// Package objectstore abstracts the URL-keyed blob store backing image and
// file messages. The chat core only ever puts an object and later purges it
// by URL; everything else about storage is out of scope.
package objectstore

import (
	"context"
	"fmt"
	"sync"
)

// Store is the narrow blob-store interface consumed by the message store.
type Store interface {
	// Put uploads data under key and returns the public URL of the object.
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	// Delete purges the object behind the given URL. Deleting an unknown URL
	// is not an error.
	Delete(ctx context.Context, url string) error
}

// Memory is an in-process Store for development and tests.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

// Put stores data and returns a synthetic URL.
func (m *Memory) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	url := fmt.Sprintf("mem://%s", key)
	m.objects[url] = append([]byte(nil), data...)
	return url, nil
}

// Delete removes the object if present.
func (m *Memory) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, url)
	return nil
}

// Has reports whether the URL is still stored. Test helper.
func (m *Memory) Has(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[url]
	return ok
}
