// Package errors provides coded errors for gamedeck.
//
// Import it aliased (conventionally as gderr) next to the standard library
// errors package. Codes classify a failure so commands can decide whether a
// pass is lost, an item is skipped, or the outcome is benign.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"

	// External tool errors
	ErrCodeToolMissing       ErrorCode = "TOOL_MISSING"
	ErrCodeAuthRequired      ErrorCode = "AUTH_REQUIRED"
	ErrCodeCommandFailed     ErrorCode = "COMMAND_FAILED"
	ErrCodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	ErrCodeAlreadyImported   ErrorCode = "ALREADY_IMPORTED"

	// Local state errors
	ErrCodeManifestNotFound ErrorCode = "MANIFEST_NOT_FOUND"
	ErrCodeStoreFailed      ErrorCode = "STORE_FAILED"

	// Session errors
	ErrCodeNotConnected ErrorCode = "NOT_CONNECTED"

	// General errors
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// DeckError represents a structured error with context
type DeckError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *DeckError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *DeckError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *DeckError) WithDetail(key string, value interface{}) *DeckError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *DeckError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new DeckError
func New(code ErrorCode, message string) *DeckError {
	return &DeckError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a DeckError
func Wrap(err error, code ErrorCode, message string) *DeckError {
	return &DeckError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if any error in the chain is a DeckError with the given code
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the code of the first DeckError in the chain
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var deckErr *DeckError
	if stderrors.As(err, &deckErr) {
		return deckErr.Code
	}
	return ""
}
