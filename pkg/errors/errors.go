// Package errors provides structured error types for the visualizer.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Each failure mode of the configuration pipeline has its own code:
//   - REFERENCE_RESOLUTION: a ${path} interpolation points at a missing key
//   - UNSUPPORTED_EXPRESSION: a ${...} expression is malformed
//   - CONFIG_REF_FETCH: a per-module config reference could not be fetched
//   - CONFIG_FILE_NOT_FOUND: a drill-down target file is absent
//   - INVALID_CONFIGURATION: the module graph itself is structurally broken
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidConfig, "missing %q entry", "input")
//	if errors.Is(err, errors.ErrCodeInvalidConfig) {
//	    // Handle structural error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeConfigRefFetch, origErr, "fetch %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Interpolation errors
	ErrCodeReferenceResolution   Code = "REFERENCE_RESOLUTION"
	ErrCodeUnsupportedExpression Code = "UNSUPPORTED_EXPRESSION"

	// Configuration reference errors
	ErrCodeConfigRefFetch     Code = "CONFIG_REF_FETCH"
	ErrCodeConfigFileNotFound Code = "CONFIG_FILE_NOT_FOUND"

	// Structural errors
	ErrCodeInvalidConfig Code = "INVALID_CONFIGURATION"
	ErrCodeInvalidInput  Code = "INVALID_INPUT"

	// Resource not found errors
	ErrCodeNotFound       Code = "NOT_FOUND"
	ErrCodeUploadNotFound Code = "UPLOAD_NOT_FOUND"
	ErrCodePresetNotFound Code = "PRESET_NOT_FOUND"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Navigation errors
	ErrCodeSuperseded Code = "REQUEST_SUPERSEDED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// NotFoundError reports that a composite module's referenced configuration
// file does not exist in the current upload. It carries both the offending
// path and the module that triggered the fetch so the caller can tell the
// user which part of the folder structure is missing.
type NotFoundError struct {
	Path   string // Path that failed to resolve
	Module string // Module whose config field referenced the path
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Module != "" {
		return fmt.Sprintf("config file %s for module %s not found", e.Path, e.Module)
	}
	return fmt.Sprintf("config file %s not found", e.Path)
}

// Code returns the error code for this error type.
func (e *NotFoundError) Code() Code {
	return ErrCodeConfigFileNotFound
}
