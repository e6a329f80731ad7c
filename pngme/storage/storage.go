package storage

import (
	"context"

	"github.com/opencontainers/go-digest"
)

// Descriptor describes a PNG file available from storage.
type Descriptor struct {
	Path   string
	Size   int64
	Digest digest.Digest
}

// Storage abstracts whole-file reads and writes. PNG files are always
// handled in memory, so there is no ranged or streaming access.
type Storage interface {
	List(ctx context.Context, root string) ([]Descriptor, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
}
