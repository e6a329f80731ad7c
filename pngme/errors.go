package pngme

import (
	pngerrors "github.com/flaneur2020/pngme/pngme/errors"
)

// NewInvalidChunkTypeError creates an invalid chunk type error
func NewInvalidChunkTypeError(chunkType string) *pngerrors.PngError {
	return pngerrors.ErrInvalidChunkType.WithDetail("type", chunkType)
}

// NewCrcMismatchError creates a crc mismatch error; expected is the stored value
func NewCrcMismatchError(chunkType ChunkType, expected, actual uint32) *pngerrors.PngError {
	return pngerrors.ErrCrcMismatch.
		WithDetail("type", chunkType.String()).
		WithDetail("expected", expected).
		WithDetail("actual", actual)
}

// NewTruncatedError creates a truncation error; need and have are byte counts
func NewTruncatedError(need uint64, have int) *pngerrors.PngError {
	return pngerrors.ErrTruncated.
		WithDetail("need", need).
		WithDetail("have", have)
}

// NewInvalidSignatureError creates an invalid signature error
func NewInvalidSignatureError(got []byte) *pngerrors.PngError {
	return pngerrors.ErrInvalidSignature.WithDetail("signature", got)
}

// NewChunkNotFoundError creates a chunk not found error
func NewChunkNotFoundError(chunkType string) *pngerrors.PngError {
	return pngerrors.ErrChunkNotFound.WithDetail("type", chunkType)
}

// NewInvalidUTF8Error creates an error for chunk data that is not text
func NewInvalidUTF8Error(chunkType ChunkType) *pngerrors.PngError {
	return pngerrors.ErrInvalidUTF8.WithDetail("type", chunkType.String())
}

// NewStorageError creates a storage error for path
func NewStorageError(path string, cause error) *pngerrors.PngError {
	return pngerrors.ErrStorage.
		WithDetail("path", path).
		WithCause(cause)
}
