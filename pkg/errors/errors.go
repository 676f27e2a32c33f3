// Package errors provides structured error types for reposcout.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the HTTP service
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - NOT_FOUND / EMPTY_RESULT: Nothing to return
//   - UPSTREAM_* / RATE_LIMITED: Failures talking to GitHub
//   - INTERNAL_*: Unexpected internal errors
//
// # Typed errors
//
// The query executor fails with one of [AuthError], [QuotaExhaustedError] or
// [UpstreamError]; the searcher adds [EmptyResultError]. Each of them unwraps
// to a coded *Error, so callers can branch on either the type or the code:
//
//	var qe *errors.QuotaExhaustedError
//	if stderrors.As(err, &qe) { ... }
//	if errors.Is(err, errors.ErrCodeRateLimited) { ... }
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidLanguage Code = "INVALID_LANGUAGE"
	ErrCodeInvalidTopic    Code = "INVALID_TOPIC"
	ErrCodeInvalidRange    Code = "INVALID_RANGE"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeInvalidRepo     Code = "INVALID_REPO"

	// Resource not found errors
	ErrCodeNotFound    Code = "NOT_FOUND"
	ErrCodeEmptyResult Code = "EMPTY_RESULT"

	// Upstream errors
	ErrCodeUpstream    Code = "UPSTREAM_ERROR"
	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeRateLimited Code = "RATE_LIMITED"

	// Authentication errors
	ErrCodeUnauthorized Code = "UNAUTHORIZED"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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
// Returns empty string if the error carries no *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For coded errors, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// AuthError is returned when GitHub rejects the credential (HTTP 401) or no
// credential is configured. It is never retried.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "authentication failed: check GITHUB_TOKEN"
	}
	return "authentication failed: " + e.Message
}

// Unwrap exposes the UNAUTHORIZED code.
func (e *AuthError) Unwrap() error {
	return &Error{Code: ErrCodeUnauthorized, Message: e.Error()}
}

// QuotaExhaustedError is returned when the rate-limit wait bound was exceeded
// or the wait was interrupted by context cancellation.
type QuotaExhaustedError struct {
	Waited  time.Duration // Total time spent waiting for quota resets
	ResetAt time.Time     // Last reset time announced by the server
	Cause   error         // Context error when the wait was interrupted
}

func (e *QuotaExhaustedError) Error() string {
	msg := fmt.Sprintf("rate limit exhausted after waiting %s", e.Waited.Round(time.Second))
	if !e.ResetAt.IsZero() {
		msg += fmt.Sprintf(" (resets at %s)", e.ResetAt.UTC().Format(time.RFC3339))
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the RATE_LIMITED code and the context error, if any.
func (e *QuotaExhaustedError) Unwrap() []error {
	errs := []error{&Error{Code: ErrCodeRateLimited, Message: e.Error()}}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// UpstreamError is returned for non-success responses other than 401 and
// quota exhaustion. Status is 0 when the transport itself failed.
type UpstreamError struct {
	Status int
	Body   string
	Cause  error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Status == 0 && e.Cause != nil:
		return "upstream request failed: " + e.Cause.Error()
	case e.Body != "":
		return fmt.Sprintf("upstream returned %d: %s", e.Status, truncate(e.Body, 200))
	default:
		return fmt.Sprintf("upstream returned %d", e.Status)
	}
}

// Unwrap exposes the UPSTREAM_ERROR code and the transport cause, if any.
func (e *UpstreamError) Unwrap() []error {
	errs := []error{&Error{Code: ErrCodeUpstream, Message: e.Error()}}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// EmptyResultError is returned when the upstream answered with no
// repositories at all, as opposed to every repository being filtered out.
type EmptyResultError struct {
	Query string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("no repositories found for %q", e.Query)
}

// Unwrap exposes the EMPTY_RESULT code.
func (e *EmptyResultError) Unwrap() error {
	return &Error{Code: ErrCodeEmptyResult, Message: e.Error()}
}

// HTTPStatus maps an error to the status code the HTTP service responds with.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeRateLimited:
		return http.StatusServiceUnavailable
	case ErrCodeUpstream, ErrCodeNetwork:
		return http.StatusBadGateway
	case ErrCodeEmptyResult, ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidInput, ErrCodeInvalidLanguage, ErrCodeInvalidTopic,
		ErrCodeInvalidRange, ErrCodeInvalidFormat, ErrCodeInvalidRepo:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
