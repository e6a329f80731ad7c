package pngme

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"unicode/utf8"

	"github.com/opencontainers/go-digest"
)

const (
	// chunkHeaderSize covers the length and type fields.
	chunkHeaderSize = 8
	// chunkCRCSize is the trailing checksum.
	chunkCRCSize = 4
	// ChunkOverhead is the number of framing bytes around a chunk's data.
	ChunkOverhead = chunkHeaderSize + chunkCRCSize
)

// Chunk is one length-prefixed, checksummed unit of a PNG stream.
// A Chunk is immutable once built; its CRC always matches type and data.
type Chunk struct {
	length    uint32
	chunkType ChunkType
	data      []byte
	crc       uint32
}

// NewChunk builds a chunk and computes its CRC. data is copied.
func NewChunk(chunkType ChunkType, data []byte) *Chunk {
	owned := append([]byte(nil), data...)
	return &Chunk{
		length:    uint32(len(owned)),
		chunkType: chunkType,
		data:      owned,
		crc:       checksum(chunkType, owned),
	}
}

// ParseChunk decodes the chunk at the start of b. Bytes after the chunk are
// ignored; use TotalSize to advance past it.
func ParseChunk(b []byte) (*Chunk, error) {
	if len(b) < chunkHeaderSize {
		return nil, NewTruncatedError(chunkHeaderSize, len(b))
	}

	length := binary.BigEndian.Uint32(b[0:4])

	var typeBytes [4]byte
	copy(typeBytes[:], b[4:8])
	chunkType, err := ChunkTypeFromBytes(typeBytes)
	if err != nil {
		return nil, err
	}

	// uint64 so a huge length cannot overflow int on 32-bit platforms
	total := uint64(length) + ChunkOverhead
	if uint64(len(b)) < total {
		return nil, NewTruncatedError(total, len(b)).
			WithDetail("type", chunkType.String())
	}

	dataEnd := chunkHeaderSize + int(length)
	data := append([]byte(nil), b[chunkHeaderSize:dataEnd]...)
	stored := binary.BigEndian.Uint32(b[dataEnd : dataEnd+chunkCRCSize])

	if computed := checksum(chunkType, data); computed != stored {
		return nil, NewCrcMismatchError(chunkType, stored, computed)
	}

	return &Chunk{
		length:    length,
		chunkType: chunkType,
		data:      data,
		crc:       stored,
	}, nil
}

// Length returns the byte length of the chunk data.
func (c *Chunk) Length() uint32 {
	return c.length
}

// ChunkType returns the chunk's type tag.
func (c *Chunk) ChunkType() ChunkType {
	return c.chunkType
}

// Data returns the chunk payload. Callers must not modify it.
func (c *Chunk) Data() []byte {
	return c.data
}

// CRC returns the CRC-32 over type and data.
func (c *Chunk) CRC() uint32 {
	return c.crc
}

// TotalSize is the serialized size of the chunk including framing.
func (c *Chunk) TotalSize() int {
	return int(c.length) + ChunkOverhead
}

// DataAsString returns the payload as text.
func (c *Chunk) DataAsString() (string, error) {
	if !utf8.Valid(c.data) {
		return "", NewInvalidUTF8Error(c.chunkType)
	}
	return string(c.data), nil
}

// Bytes serializes the chunk as length, type, data, crc with big-endian integers.
func (c *Chunk) Bytes() []byte {
	out := make([]byte, c.TotalSize())
	binary.BigEndian.PutUint32(out[0:4], c.length)
	copy(out[4:8], c.chunkType[:])
	n := copy(out[chunkHeaderSize:], c.data)
	binary.BigEndian.PutUint32(out[chunkHeaderSize+n:], c.crc)
	return out
}

// Digest returns the sha256 digest of the serialized chunk.
func (c *Chunk) Digest() digest.Digest {
	return digest.FromBytes(c.Bytes())
}

// Equal reports whether two chunks serialize identically.
func (c *Chunk) Equal(other *Chunk) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.length == other.length &&
		c.chunkType == other.chunkType &&
		c.crc == other.crc &&
		string(c.data) == string(other.data)
}

func (c *Chunk) String() string {
	return fmt.Sprintf("Length: %d\nChunk Type: %s\nCrc: %d", c.length, c.chunkType, c.crc)
}

// checksum is CRC-32/ISO-HDLC (the IEEE polynomial) over type followed by data.
func checksum(chunkType ChunkType, data []byte) uint32 {
	crc := crc32.Update(0, crc32.IEEETable, chunkType[:])
	return crc32.Update(crc, crc32.IEEETable, data)
}
