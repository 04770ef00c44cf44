package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeScan       ErrorType = "scan"
	ErrorTypeMerge      ErrorType = "merge"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeTracker    ErrorType = "tracker"
	ErrorTypeGenerate   ErrorType = "generate"
	ErrorTypeSecurity   ErrorType = "security"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// DocsyncError is a structured error type with context.
type DocsyncError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Package     string
	FilePath    string
	Line        int
	Column      int
	Recoverable bool
}

// Error implements the error interface.
func (e *DocsyncError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Package != "" {
		parts = append(parts, "package:"+e.Package)
	}

	if e.FilePath != "" {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
			if e.Column > 0 {
				location += fmt.Sprintf(":%d", e.Column)
			}
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *DocsyncError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *DocsyncError) Is(target error) bool {
	var t *DocsyncError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *DocsyncError) WithContext(key string, value interface{}) *DocsyncError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds file location information.
func (e *DocsyncError) WithLocation(filePath string, line, column int) *DocsyncError {
	e.FilePath = filePath
	e.Line = line
	e.Column = column

	return e
}

// WithPackage adds package context.
func (e *DocsyncError) WithPackage(pkg string) *DocsyncError {
	e.Package = pkg

	return e
}

// Error creation functions

// NewMergeError creates a merge error. Merge errors are never repaired
// silently; the caller decides whether to skip the page.
func NewMergeError(code, message string) *DocsyncError {
	return &DocsyncError{
		Type:        ErrorTypeMerge,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *DocsyncError {
	return &DocsyncError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewTrackerError creates a change-tracker error.
func NewTrackerError(code, message string, cause error) *DocsyncError {
	return &DocsyncError{
		Type:        ErrorTypeTracker,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewGenerateError creates an error for a failed external generator run.
func NewGenerateError(code, message string, cause error) *DocsyncError {
	return &DocsyncError{
		Type:        ErrorTypeGenerate,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewSecurityError creates a security error.
func NewSecurityError(code, message string) *DocsyncError {
	return &DocsyncError{
		Type:        ErrorTypeSecurity,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *DocsyncError {
	return &DocsyncError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *DocsyncError {
	return &DocsyncError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// Error recovery and handling utilities

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var de *DocsyncError
	if errors.As(err, &de) {
		return de.Recoverable
	}

	return false
}

// IsType reports whether err is a DocsyncError of the given type.
func IsType(err error, errType ErrorType) bool {
	var de *DocsyncError
	if errors.As(err, &de) {
		return de.Type == errType
	}

	return false
}

// IsMergeError checks if an error is merge-related.
func IsMergeError(err error) bool {
	return IsType(err, ErrorTypeMerge)
}

// IsTrackerError checks if an error came from digest computation.
func IsTrackerError(err error) bool {
	return IsType(err, ErrorTypeTracker)
}

// ErrorHandler provides centralized error handling.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs an error at a level chosen from its type. Recoverable errors
// (a single package failing to merge, an unreadable file) are warnings.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var de *DocsyncError
	if !errors.As(err, &de) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	fields := []interface{}{"type", string(de.Type), "code", de.Code}
	if de.Package != "" {
		fields = append(fields, "package", de.Package)
	}
	if de.FilePath != "" {
		fields = append(fields, "file", de.FilePath)
	}

	switch {
	case de.Type == ErrorTypeSecurity:
		h.logger.Error(ctx, de, "Security error occurred", fields...)
	case de.Recoverable:
		h.logger.Warn(ctx, de, "Recoverable error occurred", fields...)
	default:
		h.logger.Error(ctx, de, "Error occurred", fields...)
	}
}

// Common error codes.
const (
	ErrCodeMarkerUnbalanced = "ERR_MARKER_UNBALANCED"
	ErrCodeMarkerOrphanEnd  = "ERR_MARKER_ORPHAN_END"
	ErrCodeDigestFailed     = "ERR_DIGEST_FAILED"
	ErrCodeCacheCorrupt     = "ERR_CACHE_CORRUPT"
	ErrCodeGenerateFailed   = "ERR_GENERATE_FAILED"
	ErrCodeInvalidPath      = "ERR_INVALID_PATH"
	ErrCodePathTraversal    = "ERR_PATH_TRAVERSAL"
	ErrCodeCommandInjection = "ERR_COMMAND_INJECTION"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	ErrCodeWriteFailed      = "ERR_WRITE_FAILED"
	ErrCodeValidationFailed = "ERR_VALIDATION_FAILED"
	ErrCodeInternal         = "ERR_INTERNAL"
)
