// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

// Package errors provides typed registry errors with rich context.
// Every failure surfaced by the store, resolver and boundary layer carries one
// of the codes below so callers can tell "does not exist" from "cannot tell".
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies registry errors for clients and monitoring.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates a malformed payload or a missing required field.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeNotFound indicates the identifier is absent from its collection.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeDuplicateID indicates a create collided with an existing identifier.
	CodeDuplicateID ErrorCode = "DUPLICATE_ID"

	// CodeUnresolvedReference indicates a referenced skill, tool, RAG config
	// or prompt could not be found while composing an agent.
	CodeUnresolvedReference ErrorCode = "UNRESOLVED_REFERENCE"

	// CodeStorageUnavailable indicates the backend could not be reached.
	CodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"

	// CodeSyncUnavailable indicates the prompt sync target could not accept
	// a push. The registry write itself already succeeded.
	CodeSyncUnavailable ErrorCode = "PROMPT_SYNC_UNAVAILABLE"
)

// RegistryError is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type RegistryError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Attributes  map[string]string
	Recoverable bool
	StatusCode  int // HTTP status for the boundary layer
}

// Error implements the error interface.
func (e *RegistryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *RegistryError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *RegistryError) MarshalJSON() ([]byte, error) {
	var cause string
	if e.Err != nil {
		cause = e.Err.Error()
	}
	return json.Marshal(&struct {
		Message     string                 `json:"message"`
		Code        string                 `json:"code"`
		Err         string                 `json:"error,omitempty"`
		Recoverable bool                   `json:"recoverable"`
		Context     map[string]interface{} `json:"context,omitempty"`
	}{
		Message:     e.Message,
		Code:        string(e.Code),
		Err:         cause,
		Recoverable: e.Recoverable,
		Context:     e.Context,
	})
}

// New creates a new RegistryError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *RegistryError {
	return &RegistryError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]interface{}),
		Attributes: make(map[string]string),
		StatusCode: codeToStatusCode(code),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *RegistryError) WithContext(key string, value interface{}) *RegistryError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithAttribute adds a string attribute for OTEL traces.
// Returns the error for method chaining.
func (e *RegistryError) WithAttribute(key, value string) *RegistryError {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *RegistryError) WithRecoverable(recoverable bool) *RegistryError {
	e.Recoverable = recoverable
	return e
}

// NotFound reports an identifier missing from a collection.
func NotFound(kind, id string) *RegistryError {
	return New(CodeNotFound, fmt.Sprintf("%s %q not found", kind, id), nil).
		WithContext("kind", kind).
		WithContext("id", id)
}

// Duplicate reports a create that collided with an existing identifier.
func Duplicate(kind, id string) *RegistryError {
	return New(CodeDuplicateID, fmt.Sprintf("%s %q already exists", kind, id), nil).
		WithContext("kind", kind).
		WithContext("id", id)
}

// Unresolved reports a reference that could not be resolved into an embedded copy.
func Unresolved(kind, id string) *RegistryError {
	return New(CodeUnresolvedReference, fmt.Sprintf("unresolved %s reference %q", kind, id), nil).
		WithContext("kind", kind).
		WithContext("id", id)
}

// Invalid reports a validation failure on a named field.
func Invalid(field, reason string) *RegistryError {
	return New(CodeInvalidInput, fmt.Sprintf("%s %s", field, reason), nil).
		WithContext("field", field)
}

// Unavailable wraps a backend failure.
func Unavailable(op string, cause error) *RegistryError {
	return New(CodeStorageUnavailable, "storage unavailable during "+op, cause).
		WithRecoverable(true)
}

// SyncUnavailable wraps a failed push to the prompt sync target.
func SyncUnavailable(target string, cause error) *RegistryError {
	return New(CodeSyncUnavailable, "prompt sync target unavailable", cause).
		WithContext("target", target).
		WithRecoverable(true)
}

// AsRegistryError attempts to convert an error to a RegistryError.
// Returns the error as RegistryError if one is in the chain, or wraps it otherwise.
func AsRegistryError(err error) *RegistryError {
	if err == nil {
		return nil
	}
	var re *RegistryError
	if stderrors.As(err, &re) {
		return re
	}
	// Wrap unknown error as internal
	return New(CodeInternal, "wrapped error", err)
}

// CodeOf returns the code of the first RegistryError in err's chain,
// CodeInternal for foreign errors and "" for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return AsRegistryError(err).Code
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// RecoverableString returns "true" or "false" as a string for observability.
func (e *RegistryError) RecoverableString() string {
	if e.Recoverable {
		return "true"
	}
	return "false"
}

// codeToStatusCode maps error codes to HTTP status codes.
func codeToStatusCode(code ErrorCode) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidInput, CodeDuplicateID, CodeUnresolvedReference:
		return http.StatusBadRequest
	case CodeStorageUnavailable:
		return http.StatusServiceUnavailable
	case CodeSyncUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
