package storage

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/opencontainers/go-digest"
)

// MockStorage is a simple in-memory Storage implementation for tests.
type MockStorage struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMockStorage constructs an empty MockStorage.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		files: make(map[string][]byte),
	}
}

// List returns descriptors for stored files under root, sorted by path.
func (m *MockStorage) List(ctx context.Context, root string) ([]Descriptor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	root = path.Clean(root)
	descs := make([]Descriptor, 0, len(m.files))
	for p, data := range m.files {
		if p != root && root != "." && !strings.HasPrefix(p, root+"/") {
			continue
		}
		if p != root && !hasPNGExt(p) {
			continue
		}
		descs = append(descs, Descriptor{
			Path:   p,
			Size:   int64(len(data)),
			Digest: digest.FromBytes(data),
		})
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Path < descs[j].Path })
	return descs, nil
}

// Read returns a copy of the stored file.
func (m *MockStorage) Read(ctx context.Context, p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[path.Clean(p)]
	if !ok {
		return nil, fmt.Errorf("mock storage: file not found: %s", p)
	}
	return append([]byte(nil), data...), nil
}

// Write stores a copy of data at p.
func (m *MockStorage) Write(ctx context.Context, p string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.files[path.Clean(p)] = append([]byte(nil), data...)
	return nil
}

// AddFile adds file content to the mock storage and returns its digest.
func (m *MockStorage) AddFile(p string, data []byte) digest.Digest {
	_ = m.Write(context.Background(), p, data)
	return digest.FromBytes(data)
}
