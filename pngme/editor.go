package pngme

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/flaneur2020/pngme/pngme/logger"
	"github.com/flaneur2020/pngme/pngme/storage"
)

// EncodedSuffix is appended to the input file stem when no output path is given.
const EncodedSuffix = "_encoded"

// EncodeOptions controls where an encoded message lands.
type EncodeOptions struct {
	// Output is the path to write; empty derives <dir>/<stem>_encoded.png.
	Output string
	// BeforeIEND inserts the message chunk before the last IEND chunk
	// instead of appending it after everything.
	BeforeIEND bool
}

// Editor loads PNG files from storage, applies one chunk operation and
// writes the result back.
type Editor interface {
	// Encode stores message in a new chunk and returns the path written.
	Encode(ctx context.Context, path string, chunkType string, message string, opts EncodeOptions) (string, error)
	// Decode returns the text of the first chunk of chunkType.
	Decode(ctx context.Context, path string, chunkType string) (string, error)
	// Remove deletes the first chunk of chunkType and rewrites path in place.
	Remove(ctx context.Context, path string, chunkType string) (*Chunk, error)
	// Print returns the chunks of path in file order.
	Print(ctx context.Context, path string) ([]*Chunk, error)
	// Load parses path into a Png.
	Load(ctx context.Context, path string) (*Png, error)
}

type editor struct {
	storage storage.Storage
}

// NewEditor creates an Editor over the given storage.
func NewEditor(s storage.Storage) Editor {
	return &editor{storage: s}
}

func (e *editor) Load(ctx context.Context, path string) (*Png, error) {
	data, err := e.storage.Read(ctx, path)
	if err != nil {
		return nil, NewStorageError(path, err)
	}
	png, err := ParsePng(data)
	if err != nil {
		logger.Warn("Failed to parse %s: %v", path, err)
		return nil, err
	}
	logger.Info("Loaded %s: %d chunks, %d bytes", path, png.Len(), len(data))
	return png, nil
}

func (e *editor) Encode(ctx context.Context, path string, chunkType string, message string, opts EncodeOptions) (string, error) {
	ct, err := ParseChunkType(chunkType)
	if err != nil {
		return "", err
	}

	png, err := e.Load(ctx, path)
	if err != nil {
		return "", err
	}

	chunk := NewChunk(ct, []byte(message))
	if idx := png.LastIndexOf("IEND"); opts.BeforeIEND && idx >= 0 {
		png.InsertChunk(idx, chunk)
	} else {
		png.AppendChunk(chunk)
	}

	output := opts.Output
	if output == "" {
		output = EncodedPath(path)
	}

	if err := e.save(ctx, output, png); err != nil {
		return "", err
	}
	logger.Info("Encoded %d bytes as %s into %s", len(message), ct, output)
	return output, nil
}

func (e *editor) Decode(ctx context.Context, path string, chunkType string) (string, error) {
	png, err := e.Load(ctx, path)
	if err != nil {
		return "", err
	}

	chunk := png.ChunkByType(chunkType)
	if chunk == nil {
		return "", NewChunkNotFoundError(chunkType).WithDetail("path", path)
	}
	return chunk.DataAsString()
}

func (e *editor) Remove(ctx context.Context, path string, chunkType string) (*Chunk, error) {
	png, err := e.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	removed, err := png.RemoveChunk(chunkType)
	if err != nil {
		return nil, err
	}

	if err := e.save(ctx, path, png); err != nil {
		return nil, err
	}
	logger.Info("Removed %s chunk (%d bytes) from %s", chunkType, removed.Length(), path)
	return removed, nil
}

func (e *editor) Print(ctx context.Context, path string) ([]*Chunk, error) {
	png, err := e.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return png.Chunks(), nil
}

func (e *editor) save(ctx context.Context, path string, png *Png) error {
	if err := e.storage.Write(ctx, path, png.Bytes()); err != nil {
		return NewStorageError(path, err)
	}
	return nil
}

// EncodedPath derives the default output path: "dir/image.png" becomes
// "dir/image_encoded.png".
func EncodedPath(path string) string {
	dir, file := filepath.Split(path)
	stem := strings.TrimSuffix(file, filepath.Ext(file))
	return filepath.Join(dir, stem+EncodedSuffix+".png")
}
