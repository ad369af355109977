// Package errors provides structured error handling for portscout operations.
// It defines error codes, error types, and provides utilities for creating
// and handling errors with context and structured information.
package errors

import (
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeCanceled      ErrorCode = "CANCELED"

	// Scanning errors.
	CodeTargetInvalid ErrorCode = "TARGET_INVALID"
	CodeRangeInvalid  ErrorCode = "RANGE_INVALID"
	CodeEmptyPortSet  ErrorCode = "EMPTY_PORT_SET"
	CodeScanFailed    ErrorCode = "SCAN_FAILED"

	// Probe errors.
	CodeProbeFailed ErrorCode = "PROBE_FAILED"
)

// ScanError represents an error that occurred during scanning operations.
type ScanError struct {
	Code    ErrorCode
	Message string
	Host    string
	Port    int
	Cause   error
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("[%s] %s (host: %s)", e.Code, e.Message, e.Host)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// NewScanError creates a new scan error with the specified code and message.
func NewScanError(code ErrorCode, message string) *ScanError {
	return &ScanError{Code: code, Message: message}
}

// NewScanErrorWithHost creates a scan error for a specific host.
func NewScanErrorWithHost(code ErrorCode, message, host string) *ScanError {
	return &ScanError{Code: code, Message: message, Host: host}
}

// WrapScanError wraps an existing error as a scan error.
func WrapScanError(code ErrorCode, message string, err error) *ScanError {
	return &ScanError{Code: code, Message: message, Cause: err}
}

// ProbeError represents a service-identification error. Probe errors are
// absorbed at tier boundaries and only logged at debug level; they never
// abort a scan batch.
type ProbeError struct {
	Code  ErrorCode
	Tier  string
	Host  string
	Port  int
	Cause error
}

// Error implements the error interface.
func (e *ProbeError) Error() string {
	if e.Tier != "" {
		return fmt.Sprintf("[%s] probe tier %s failed (host: %s, port: %d)", e.Code, e.Tier, e.Host, e.Port)
	}
	return fmt.Sprintf("[%s] probe failed (host: %s, port: %d)", e.Code, e.Host, e.Port)
}

// Unwrap returns the underlying error.
func (e *ProbeError) Unwrap() error {
	return e.Cause
}

// WrapProbeError wraps an error from a detection tier.
func WrapProbeError(tier, host string, port int, err error) *ProbeError {
	return &ProbeError{Code: CodeProbeFailed, Tier: tier, Host: host, Port: port, Cause: err}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new configuration error.
func NewConfigError(code ErrorCode, message string) *ConfigError {
	return &ConfigError{Code: code, Message: message}
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string, value interface{}) *ConfigError {
	return &ConfigError{Code: code, Message: message, Field: field, Value: value}
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(code ErrorCode, message string, err error) *ConfigError {
	return &ConfigError{Code: code, Message: message, Cause: err}
}

// Utility functions for common error operations

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error if it has one.
func GetCode(err error) ErrorCode {
	switch e := err.(type) {
	case *ScanError:
		return e.Code
	case *ProbeError:
		return e.Code
	case *ConfigError:
		return e.Code
	}
	return CodeUnknown
}

// IsFatal determines if an error indicates a condition that should stop
// execution before any scan is attempted. Argument and validation errors
// are fatal; network-transient and probe errors never are.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case CodeValidation, CodeRangeInvalid, CodeEmptyPortSet, CodeTargetInvalid:
		return true
	default:
		return false
	}
}

// Common error creation functions

// ErrInvalidRange creates an error for an invalid port range.
func ErrInvalidRange(start, end int) *ScanError {
	return NewScanError(CodeRangeInvalid,
		fmt.Sprintf("Invalid port range %d-%d: ports must be 1-65535 and start <= end", start, end))
}

// ErrEmptyPortSet creates an error for an empty resolved port set.
func ErrEmptyPortSet() *ScanError {
	return NewScanError(CodeEmptyPortSet, "No valid ports found in specified lists")
}

// ErrInvalidTarget creates an error for invalid scan targets.
func ErrInvalidTarget(host string) *ScanError {
	return NewScanErrorWithHost(CodeTargetInvalid, "Invalid target specification", host)
}
