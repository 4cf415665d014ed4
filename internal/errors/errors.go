// Package errors provides structured error types for the migration system.
// All errors include a category, code, message, and retryable flag so that
// the pipeline can decide whether a row, a partition, or the whole job fails.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategorySchema   ErrorCategory = "SCHEMA"
	ErrCategoryRowKey   ErrorCategory = "ROWKEY"
	ErrCategoryCodec    ErrorCategory = "CODEC"
	ErrCategoryMerge    ErrorCategory = "MERGE"
	ErrCategoryRecon    ErrorCategory = "RECON"
	ErrCategoryStorage  ErrorCategory = "STORAGE"
	ErrCategorySource   ErrorCategory = "SOURCE"
	ErrCategorySink     ErrorCategory = "SINK"
	ErrCategoryInternal ErrorCategory = "INTERNAL"
)

// Error codes.
const (
	// Schema codes
	CodeColumnNotFound   = "COLUMN_NOT_FOUND"
	CodeInvalidSchema    = "INVALID_SCHEMA"
	CodeInvalidOperation = "INVALID_OPERATION"

	// Row key codes
	CodeInvalidRowKey = "INVALID_ROWKEY"

	// Codec codes
	CodeDecodeFailed = "DECODE_FAILED"
	CodeEncodeFailed = "ENCODE_FAILED"

	// Merge codes
	CodeInvalidColumn = "INVALID_COLUMN"

	// Recon codes
	CodeUnknownOperation = "UNKNOWN_OPERATION"

	// Storage codes
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeDownloadFailed = "DOWNLOAD_FAILED"
	CodeObjectNotFound = "OBJECT_NOT_FOUND"

	// Source and sink codes
	CodeReadFailed  = "READ_FAILED"
	CodeWriteFailed = "WRITE_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// MigrationError is the structured error type used throughout the system.
type MigrationError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *MigrationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *MigrationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *MigrationError) Is(target error) bool {
	var t *MigrationError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new MigrationError.
func New(category ErrorCategory, code, message string) *MigrationError {
	return &MigrationError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new MigrationError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *MigrationError {
	return &MigrationError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *MigrationError) WithDetails(details map[string]interface{}) *MigrationError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var me *MigrationError
	if errors.As(err, &me) {
		return me.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a MigrationError.
func GetCategory(err error) ErrorCategory {
	var me *MigrationError
	if errors.As(err, &me) {
		return me.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a MigrationError.
func GetCode(err error) string {
	var me *MigrationError
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}

// HasCode reports whether any MigrationError in the chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		var me *MigrationError
		if !errors.As(err, &me) {
			return false
		}
		if me.Code == code {
			return true
		}
		err = me.Cause
	}
	return false
}

func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryStorage && code == CodeUploadFailed:
		return true
	case category == ErrCategoryStorage && code == CodeDownloadFailed:
		return true
	case category == ErrCategorySource && code == CodeReadFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewSchemaError(code, message string, cause error) *MigrationError {
	return Wrap(ErrCategorySchema, code, message, cause)
}

func NewRowKeyError(message string, cause error) *MigrationError {
	return Wrap(ErrCategoryRowKey, CodeInvalidRowKey, message, cause)
}

func NewCodecError(code, message string, cause error) *MigrationError {
	return Wrap(ErrCategoryCodec, code, message, cause)
}

func NewMergeError(code, message string, cause error) *MigrationError {
	return Wrap(ErrCategoryMerge, code, message, cause)
}

func NewReconError(code, message string) *MigrationError {
	return New(ErrCategoryRecon, code, message)
}

func NewStorageError(code, message string, cause error) *MigrationError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewSourceError(message string, cause error) *MigrationError {
	return Wrap(ErrCategorySource, CodeReadFailed, message, cause)
}

func NewSinkError(message string, cause error) *MigrationError {
	return Wrap(ErrCategorySink, CodeWriteFailed, message, cause)
}

func NewInternalError(message string, cause error) *MigrationError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
