package pngme

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	pngerrors "github.com/flaneur2020/pngme/pngme/errors"
)

const (
	testMessage = "This is where your secret message will be!"
	testCRC     = uint32(2882656334)
)

// rawChunk frames a chunk by hand so tests do not depend on Chunk.Bytes.
func rawChunk(length uint32, chunkType string, data []byte, crc uint32) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, length)
	buf.WriteString(chunkType)
	buf.Write(data)
	binary.Write(&buf, binary.BigEndian, crc)
	return buf.Bytes()
}

func mustChunk(t *testing.T, chunkType string, data string) *Chunk {
	t.Helper()
	ct, err := ParseChunkType(chunkType)
	if err != nil {
		t.Fatalf("ParseChunkType(%q) error = %v", chunkType, err)
	}
	return NewChunk(ct, []byte(data))
}

func TestNewChunk(t *testing.T) {
	chunk := mustChunk(t, "RuSt", testMessage)

	if chunk.Length() != 42 {
		t.Errorf("Length() = %d, want 42", chunk.Length())
	}
	if chunk.CRC() != testCRC {
		t.Errorf("CRC() = %d, want %d", chunk.CRC(), testCRC)
	}
	if chunk.ChunkType().String() != "RuSt" {
		t.Errorf("ChunkType() = %s, want RuSt", chunk.ChunkType())
	}
}

func TestNewChunk_CopiesData(t *testing.T) {
	ct, _ := ParseChunkType("RuSt")
	data := []byte("mutable")
	chunk := NewChunk(ct, data)
	data[0] = 'X'

	if string(chunk.Data()) != "mutable" {
		t.Errorf("Data() = %q, want %q", chunk.Data(), "mutable")
	}
}

func TestChunk_Bytes(t *testing.T) {
	chunk := mustChunk(t, "RuSt", testMessage)
	want := rawChunk(42, "RuSt", []byte(testMessage), testCRC)

	if got := chunk.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("Bytes() = %x, want %x", got, want)
	}
	if chunk.TotalSize() != len(want) {
		t.Errorf("TotalSize() = %d, want %d", chunk.TotalSize(), len(want))
	}
}

func TestParseChunk(t *testing.T) {
	chunk, err := ParseChunk(rawChunk(42, "RuSt", []byte(testMessage), testCRC))
	if err != nil {
		t.Fatalf("ParseChunk() error = %v", err)
	}

	text, err := chunk.DataAsString()
	if err != nil {
		t.Fatalf("DataAsString() error = %v", err)
	}
	if chunk.Length() != 42 {
		t.Errorf("Length() = %d, want 42", chunk.Length())
	}
	if chunk.ChunkType().String() != "RuSt" {
		t.Errorf("ChunkType() = %s, want RuSt", chunk.ChunkType())
	}
	if text != testMessage {
		t.Errorf("DataAsString() = %q, want %q", text, testMessage)
	}
	if chunk.CRC() != testCRC {
		t.Errorf("CRC() = %d, want %d", chunk.CRC(), testCRC)
	}
}

func TestParseChunk_IgnoresTrailingBytes(t *testing.T) {
	raw := append(rawChunk(42, "RuSt", []byte(testMessage), testCRC), 0xde, 0xad)

	chunk, err := ParseChunk(raw)
	if err != nil {
		t.Fatalf("ParseChunk() error = %v", err)
	}
	if chunk.TotalSize() != len(raw)-2 {
		t.Errorf("TotalSize() = %d, want %d", chunk.TotalSize(), len(raw)-2)
	}
}

func TestParseChunk_RoundTrip(t *testing.T) {
	tests := []struct {
		typ  string
		data []byte
	}{
		{typ: "IEND", data: nil},
		{typ: "RuSt", data: []byte(testMessage)},
		{typ: "tEXt", data: []byte("Comment\x00hello")},
		{typ: "abCD", data: bytes.Repeat([]byte{0x00, 0xff}, 4096)},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			ct, _ := ParseChunkType(tt.typ)
			want := NewChunk(ct, tt.data)

			got, err := ParseChunk(want.Bytes())
			if err != nil {
				t.Fatalf("ParseChunk() error = %v", err)
			}
			if !got.Equal(want) {
				t.Errorf("ParseChunk(Bytes()) = %v, want %v", got, want)
			}
			if !bytes.Equal(got.Data(), want.Data()) {
				t.Errorf("Data() = %x, want %x", got.Data(), want.Data())
			}
		})
	}
}

func TestParseChunk_CrcMismatch(t *testing.T) {
	_, err := ParseChunk(rawChunk(42, "RuSt", []byte(testMessage), testCRC-1))
	if !errors.Is(err, pngerrors.ErrCrcMismatch) {
		t.Fatalf("ParseChunk() error = %v, want CRC_MISMATCH", err)
	}
}

func TestParseChunk_FlippedCrcByte(t *testing.T) {
	good := mustChunk(t, "RuSt", testMessage).Bytes()
	crcStart := len(good) - chunkCRCSize

	for i := crcStart; i < len(good); i++ {
		corrupted := append([]byte(nil), good...)
		corrupted[i] ^= 0xff

		_, err := ParseChunk(corrupted)
		if !errors.Is(err, pngerrors.ErrCrcMismatch) {
			t.Errorf("byte %d flipped: ParseChunk() error = %v, want CRC_MISMATCH", i, err)
		}
	}
}

func TestParseChunk_FlippedDataByte(t *testing.T) {
	good := mustChunk(t, "RuSt", testMessage).Bytes()
	good[chunkHeaderSize+3] ^= 0x01

	if _, err := ParseChunk(good); !errors.Is(err, pngerrors.ErrCrcMismatch) {
		t.Errorf("ParseChunk() error = %v, want CRC_MISMATCH", err)
	}
}

func TestParseChunk_Truncated(t *testing.T) {
	full := mustChunk(t, "RuSt", testMessage).Bytes()

	tests := []struct {
		name string
		in   []byte
	}{
		{name: "empty", in: nil},
		{name: "partial header", in: full[:6]},
		{name: "missing crc", in: full[:len(full)-1]},
		{name: "missing data", in: full[:20]},
		{name: "huge length", in: rawChunk(0xffffffff, "RuSt", nil, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChunk(tt.in)
			if !errors.Is(err, pngerrors.ErrTruncated) {
				t.Errorf("ParseChunk() error = %v, want TRUNCATED", err)
			}
		})
	}
}

func TestParseChunk_InvalidType(t *testing.T) {
	_, err := ParseChunk(rawChunk(0, "Ru1t", nil, 0))
	if !errors.Is(err, pngerrors.ErrInvalidChunkType) {
		t.Errorf("ParseChunk() error = %v, want INVALID_CHUNK_TYPE", err)
	}
}

func TestChunk_DataAsString_InvalidUTF8(t *testing.T) {
	ct, _ := ParseChunkType("RuSt")
	chunk := NewChunk(ct, []byte{0xff, 0xfe, 0xfd})

	_, err := chunk.DataAsString()
	if !errors.Is(err, pngerrors.ErrInvalidUTF8) {
		t.Errorf("DataAsString() error = %v, want INVALID_UTF8", err)
	}
}

func TestChunk_String(t *testing.T) {
	got := mustChunk(t, "RuSt", testMessage).String()

	for _, want := range []string{"Length: 42", "Chunk Type: RuSt", "Crc: 2882656334"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, want to contain %q", got, want)
		}
	}
}

func TestChunk_Digest(t *testing.T) {
	a := mustChunk(t, "RuSt", testMessage)
	b := mustChunk(t, "RuSt", testMessage)
	c := mustChunk(t, "RuSt", "other")

	if a.Digest() != b.Digest() {
		t.Errorf("Digest() differs for equal chunks: %s vs %s", a.Digest(), b.Digest())
	}
	if a.Digest() == c.Digest() {
		t.Error("Digest() should differ for different data")
	}
	if err := a.Digest().Validate(); err != nil {
		t.Errorf("Digest().Validate() error = %v", err)
	}
}
