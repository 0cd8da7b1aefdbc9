package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeSchema     ErrorType = "SCHEMA"
	ErrTypeUnexpected ErrorType = "UNEXPECTED"
	ErrTypeParsing    ErrorType = "PARSING"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeConfig     ErrorType = "CONFIG"
)

// Context keys carried by schema errors
const (
	ContextMissingRoles     = "missing_roles"
	ContextAvailableHeaders = "available_headers"
	ContextPath             = "path"
	ContextStack            = "stack"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// ContextKeys returns the context keys in sorted order
func (e *AppError) ContextKeys() []string {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Helper functions for common error types

// NewNotFoundError creates a not found error for a missing file or resource
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil).
		WithContext(ContextPath, resource)
}

// NewSchemaError creates an error for spreadsheet columns that could not be
// identified. The available headers are attached so the operator can see what
// the export actually contained.
func NewSchemaError(missingRoles []string, headers []string) *AppError {
	msg := fmt.Sprintf("could not identify columns for: %s", strings.Join(missingRoles, ", "))
	return NewAppError(ErrTypeSchema, msg, nil).
		WithContext(ContextMissingRoles, append([]string(nil), missingRoles...)).
		WithContext(ContextAvailableHeaders, append([]string(nil), headers...))
}

// NewUnexpectedError wraps any failure that is neither a missing file nor a
// schema problem
func NewUnexpectedError(message string, cause error) *AppError {
	return NewAppError(ErrTypeUnexpected, message, cause)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string, cause error) *AppError {
	return NewAppError(ErrTypeValidation, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// TypeOf returns the type of the outermost AppError in the chain, or an empty
// ErrorType if there is none
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether any AppError in the chain has the given type
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Type == errType {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// AsAppError returns the outermost AppError in the chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
