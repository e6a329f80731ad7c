package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/flaneur2020/pngme/pngme/logger"
	"github.com/opencontainers/go-digest"
)

// LocalStorage reads and writes files on the local filesystem.
type LocalStorage struct {
	fileMode os.FileMode
}

// NewLocalStorage creates a filesystem-backed storage. New files get mode 0644.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{fileMode: 0644}
}

// List returns every *.png file below root. A root that is itself a file is
// listed as-is, whatever its extension.
func (s *LocalStorage) List(ctx context.Context, root string) ([]Descriptor, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		desc, err := s.describe(root)
		if err != nil {
			return nil, err
		}
		return []Descriptor{desc}, nil
	}

	var descs []Descriptor
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !hasPNGExt(p) {
			return nil
		}
		desc, err := s.describe(p)
		if err != nil {
			return err
		}
		descs = append(descs, desc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.Slice(descs, func(i, j int) bool { return descs[i].Path < descs[j].Path })
	logger.Debug("Listed %d png files under %s", len(descs), root)
	return descs, nil
}

// Read loads the whole file into memory.
func (s *LocalStorage) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	logger.Debug("Read %d bytes from %s", len(data), path)
	return data, nil
}

// Write replaces path with data, creating parent directories as needed.
// The data goes to a temporary file first so a failed write never leaves a
// half-written PNG behind.
func (s *LocalStorage) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".pngme-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, s.fileMode); err != nil {
		return fmt.Errorf("failed to set mode on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	logger.Debug("Wrote %d bytes to %s", len(data), path)
	return nil
}

func (s *LocalStorage) describe(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Descriptor{
		Path:   path,
		Size:   int64(len(data)),
		Digest: digest.FromBytes(data),
	}, nil
}

func hasPNGExt(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".png")
}
