// Package errors provides structured error types for the table store.
// All errors include a category, code and message for consistent
// handling across components.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryCodec      ErrorCategory = "CODEC"
	ErrCategoryChunk      ErrorCategory = "CHUNK"
	ErrCategoryFrame      ErrorCategory = "FRAME"
	ErrCategoryArchive    ErrorCategory = "ARCHIVE"
)

// Error codes for each category.
const (
	// Validation codes
	CodeLengthMismatch  = "LENGTH_MISMATCH"
	CodeInvalidPosition = "INVALID_POSITION"
	CodeInvalidLevel    = "INVALID_LEVEL"
	CodeMixedIdentity   = "MIXED_IDENTITY"

	// Codec codes
	CodeBadMagic         = "BAD_MAGIC"
	CodeChecksumMismatch = "CHECKSUM_MISMATCH"
	CodeTruncatedChunk   = "TRUNCATED_CHUNK"

	// Chunk storage codes
	CodeChunkNotFound = "CHUNK_NOT_FOUND"
	CodeChunkIO       = "CHUNK_IO"

	// Frame codes
	CodeColumnNotFound = "COLUMN_NOT_FOUND"
	CodeCorruptedData  = "CORRUPTED_DATA"

	// Archive codes
	CodeBadArchive = "BAD_ARCHIVE"
)

// StoreError is the structured error type used throughout the system.
type StoreError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error returns a formatted error string.
func (e *StoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *StoreError) Is(target error) bool {
	var t *StoreError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new StoreError.
func New(category ErrorCategory, code, message string) *StoreError {
	return &StoreError{Category: category, Code: code, Message: message}
}

// Wrap creates a new StoreError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *StoreError {
	return &StoreError{Category: category, Code: code, Message: message, Cause: cause}
}

// WithDetails returns a copy of the error with additional details.
func (e *StoreError) WithDetails(details map[string]interface{}) *StoreError {
	cp := *e
	cp.Details = details
	return &cp
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a StoreError.
func GetCategory(err error) ErrorCategory {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a StoreError.
func GetCode(err error) string {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsCorruptedData reports whether err marks a frame that failed its
// load-time integrity check.
func IsCorruptedData(err error) bool {
	return GetCode(err) == CodeCorruptedData
}

// IsColumnNotFound reports whether err marks a selection that named
// identities absent from the lookup index.
func IsColumnNotFound(err error) bool {
	return GetCode(err) == CodeColumnNotFound
}

// Convenience constructors for common errors.

func NewValidationError(code, message string) *StoreError {
	return New(ErrCategoryValidation, code, message)
}

func NewCodecError(code, message string, cause error) *StoreError {
	return Wrap(ErrCategoryCodec, code, message, cause)
}

func NewChunkError(code, message string, cause error) *StoreError {
	return Wrap(ErrCategoryChunk, code, message, cause)
}

func NewColumnNotFound(message string) *StoreError {
	return New(ErrCategoryFrame, CodeColumnNotFound, message)
}

func NewCorruptedData(message string, cause error) *StoreError {
	return Wrap(ErrCategoryFrame, CodeCorruptedData, message, cause)
}

func NewArchiveError(message string, cause error) *StoreError {
	return Wrap(ErrCategoryArchive, CodeBadArchive, message, cause)
}
