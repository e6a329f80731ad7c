package errors

import (
	stderrors "errors"
	"fmt"
)

// Error types for pngme operations
var (
	// ErrInvalidChunkType is returned when a chunk type is not four ASCII letters
	ErrInvalidChunkType = &PngError{Code: "INVALID_CHUNK_TYPE", Message: "invalid chunk type"}

	// ErrCrcMismatch is returned when a chunk's stored CRC does not match its contents
	ErrCrcMismatch = &PngError{Code: "CRC_MISMATCH", Message: "chunk crc mismatch"}

	// ErrTruncated is returned when a buffer ends before the declared chunk length
	ErrTruncated = &PngError{Code: "TRUNCATED", Message: "truncated chunk"}

	// ErrInvalidSignature is returned when a file does not start with the PNG signature
	ErrInvalidSignature = &PngError{Code: "INVALID_SIGNATURE", Message: "invalid png signature"}

	// ErrChunkNotFound is returned when no chunk of the requested type exists
	ErrChunkNotFound = &PngError{Code: "CHUNK_NOT_FOUND", Message: "chunk not found"}

	// ErrInvalidUTF8 is returned when chunk data requested as text is not valid UTF-8
	ErrInvalidUTF8 = &PngError{Code: "INVALID_UTF8", Message: "chunk data is not valid utf-8"}

	// ErrStorage is returned when reading or writing a file fails
	ErrStorage = &PngError{Code: "STORAGE_FAILED", Message: "storage operation failed"}
)

// PngError represents a structured error in pngme operations
type PngError struct {
	Code    string                 // Error code for programmatic handling
	Message string                 // Human-readable error message
	Cause   error                  // Underlying error, if any
	Details map[string]interface{} // Additional context
}

// Error implements the error interface
func (e *PngError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	if len(e.Details) > 0 {
		return fmt.Sprintf("[%s] %s (details: %v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *PngError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a PngError with the same code, so decorated
// copies still match their sentinel.
func (e *PngError) Is(target error) bool {
	t, ok := target.(*PngError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause adds a cause to the error
func (e *PngError) WithCause(cause error) *PngError {
	return &PngError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   cause,
		Details: e.Details,
	}
}

// WithDetail adds a detail key-value pair to the error
func (e *PngError) WithDetail(key string, value interface{}) *PngError {
	details := make(map[string]interface{})
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &PngError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Details: details,
	}
}

// GetErrorCode extracts the error code from the first PngError in err's chain
func GetErrorCode(err error) string {
	var pngErr *PngError
	if stderrors.As(err, &pngErr) {
		return pngErr.Code
	}
	return ""
}
