package pngme

// propertyBit is bit 5 of each type byte; its meaning depends on the byte position.
const propertyBit = 0x20

// ChunkType is the 4-byte tag identifying a chunk. Every byte is an ASCII letter.
type ChunkType [4]byte

// ChunkTypeFromBytes validates raw type bytes.
func ChunkTypeFromBytes(b [4]byte) (ChunkType, error) {
	for _, c := range b {
		if !isASCIILetter(c) {
			return ChunkType{}, NewInvalidChunkTypeError(string(b[:]))
		}
	}
	return ChunkType(b), nil
}

// ParseChunkType builds a ChunkType from a 4-character string such as "IHDR".
func ParseChunkType(s string) (ChunkType, error) {
	if len(s) != 4 {
		return ChunkType{}, NewInvalidChunkTypeError(s).WithDetail("length", len(s))
	}
	var b [4]byte
	copy(b[:], s)
	return ChunkTypeFromBytes(b)
}

// Bytes returns the raw type bytes.
func (t ChunkType) Bytes() [4]byte {
	return t
}

// IsCritical reports whether decoders must understand the chunk (ancillary bit unset).
func (t ChunkType) IsCritical() bool {
	return t[0]&propertyBit == 0
}

// IsPublic reports whether the type is registered by the PNG specification.
func (t ChunkType) IsPublic() bool {
	return t[1]&propertyBit == 0
}

// IsReservedBitValid reports whether the reserved bit is unset, as PNG requires.
func (t ChunkType) IsReservedBitValid() bool {
	return t[2]&propertyBit == 0
}

// IsSafeToCopy reports whether editors may copy the chunk without understanding it.
func (t ChunkType) IsSafeToCopy() bool {
	return t[3]&propertyBit != 0
}

// IsValid reports whether the type is made of letters and has a valid reserved bit.
func (t ChunkType) IsValid() bool {
	for _, c := range t {
		if !isASCIILetter(c) {
			return false
		}
	}
	return t.IsReservedBitValid()
}

func (t ChunkType) String() string {
	return string(t[:])
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
