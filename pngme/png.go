package pngme

import (
	"bytes"

	pngerrors "github.com/flaneur2020/pngme/pngme/errors"
	"github.com/flaneur2020/pngme/pngme/logger"
	"github.com/opencontainers/go-digest"
)

// StandardHeader is the fixed 8-byte signature every PNG stream starts with.
var StandardHeader = [8]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// Png is a PNG signature followed by an ordered list of chunks.
// The chunk order is preserved exactly across parse and serialize.
// A Png is not safe for concurrent mutation.
type Png struct {
	chunks []*Chunk
}

// NewPng creates a Png holding chunks in the given order.
func NewPng(chunks []*Chunk) *Png {
	return &Png{chunks: append([]*Chunk(nil), chunks...)}
}

// ParsePng decodes a complete PNG stream. Parsing stops at the first bad chunk;
// nothing after a length or CRC failure can be trusted.
func ParsePng(b []byte) (*Png, error) {
	if len(b) < len(StandardHeader) || !bytes.Equal(b[:len(StandardHeader)], StandardHeader[:]) {
		head := b
		if len(head) > len(StandardHeader) {
			head = head[:len(StandardHeader)]
		}
		return nil, NewInvalidSignatureError(append([]byte(nil), head...))
	}

	png := &Png{}
	offset := len(StandardHeader)
	for offset < len(b) {
		chunk, err := ParseChunk(b[offset:])
		if err != nil {
			if pngErr, ok := err.(*pngerrors.PngError); ok {
				return nil, pngErr.WithDetail("offset", offset)
			}
			return nil, err
		}
		logger.Debug("Parsed chunk %s at offset %d (length %d)", chunk.ChunkType(), offset, chunk.Length())
		png.chunks = append(png.chunks, chunk)
		offset += chunk.TotalSize()
	}

	return png, nil
}

// AppendChunk adds chunk after the last chunk. IEND placement is the caller's concern.
func (p *Png) AppendChunk(chunk *Chunk) {
	p.chunks = append(p.chunks, chunk)
}

// InsertChunk places chunk at index, clamped to [0, len(chunks)].
func (p *Png) InsertChunk(index int, chunk *Chunk) {
	if index < 0 {
		index = 0
	}
	if index > len(p.chunks) {
		index = len(p.chunks)
	}
	p.chunks = append(p.chunks, nil)
	copy(p.chunks[index+1:], p.chunks[index:])
	p.chunks[index] = chunk
}

// ChunkByType returns the first chunk whose type renders as chunkType, or nil.
// A string that is not a valid type simply matches nothing.
func (p *Png) ChunkByType(chunkType string) *Chunk {
	if i := p.indexOf(chunkType); i >= 0 {
		return p.chunks[i]
	}
	return nil
}

// RemoveChunk removes and returns the first chunk of the given type.
// The remaining chunks keep their relative order.
func (p *Png) RemoveChunk(chunkType string) (*Chunk, error) {
	i := p.indexOf(chunkType)
	if i < 0 {
		return nil, NewChunkNotFoundError(chunkType)
	}
	removed := p.chunks[i]
	p.chunks = append(p.chunks[:i], p.chunks[i+1:]...)
	return removed, nil
}

// LastIndexOf returns the index of the last chunk of the given type, or -1.
func (p *Png) LastIndexOf(chunkType string) int {
	for i := len(p.chunks) - 1; i >= 0; i-- {
		if p.chunks[i].ChunkType().String() == chunkType {
			return i
		}
	}
	return -1
}

// Chunks returns the chunks in stream order. The slice is a copy; the chunks are shared.
func (p *Png) Chunks() []*Chunk {
	return append([]*Chunk(nil), p.chunks...)
}

// Len returns the number of chunks.
func (p *Png) Len() int {
	return len(p.chunks)
}

// Header returns the PNG signature.
func (p *Png) Header() [8]byte {
	return StandardHeader
}

// Bytes serializes the signature followed by every chunk in order.
func (p *Png) Bytes() []byte {
	size := len(StandardHeader)
	for _, c := range p.chunks {
		size += c.TotalSize()
	}

	out := make([]byte, 0, size)
	out = append(out, StandardHeader[:]...)
	for _, c := range p.chunks {
		out = append(out, c.Bytes()...)
	}
	return out
}

// Digest returns the sha256 digest of the serialized stream.
func (p *Png) Digest() digest.Digest {
	return digest.FromBytes(p.Bytes())
}

// Equal reports whether both streams hold identical chunks in the same order.
func (p *Png) Equal(other *Png) bool {
	if len(p.chunks) != len(other.chunks) {
		return false
	}
	for i := range p.chunks {
		if !p.chunks[i].Equal(other.chunks[i]) {
			return false
		}
	}
	return true
}

func (p *Png) indexOf(chunkType string) int {
	for i, c := range p.chunks {
		if c.ChunkType().String() == chunkType {
			return i
		}
	}
	return -1
}
