package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidInput, "test message: %s", "value")

	if err.Code != ErrCodeInvalidInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidInput)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "INVALID_INPUT: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeNetwork, cause, "failed to fetch")

	if err.Code != ErrCodeNetwork {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeNetwork)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	// Test Unwrap
	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	// Test errors.Is with wrapped error
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeInvalidInput,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeNetwork,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodeNetwork, New(ErrCodeInvalidInput, "inner"), "outer"),
			code:     ErrCodeNetwork,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidRepo, "test"),
			expected: ErrCodeInvalidRepo,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			expected: "",
		},
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidInput, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTypedErrorsCarryCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   Code
		status int
	}{
		{"auth", &AuthError{}, ErrCodeUnauthorized, http.StatusUnauthorized},
		{"quota", &QuotaExhaustedError{Waited: time.Minute}, ErrCodeRateLimited, http.StatusServiceUnavailable},
		{"upstream", &UpstreamError{Status: 500, Body: "boom"}, ErrCodeUpstream, http.StatusBadGateway},
		{"empty", &EmptyResultError{Query: "language:go"}, ErrCodeEmptyResult, http.StatusNotFound},
		{"invalid", New(ErrCodeInvalidLanguage, "bad"), ErrCodeInvalidLanguage, http.StatusBadRequest},
		{"plain", errors.New("plain"), "", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("search: %w", tt.err)
			if got := GetCode(wrapped); got != tt.code {
				t.Errorf("GetCode() = %v, want %v", got, tt.code)
			}
			if got := HTTPStatus(wrapped); got != tt.status {
				t.Errorf("HTTPStatus() = %v, want %v", got, tt.status)
			}
		})
	}
}

func TestQuotaExhaustedErrorUnwrapsContext(t *testing.T) {
	err := &QuotaExhaustedError{Waited: 5 * time.Second, Cause: context.Canceled}

	if !errors.Is(err, context.Canceled) {
		t.Error("errors.Is(err, context.Canceled) = false, want true")
	}
	var qe *QuotaExhaustedError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &qe) {
		t.Fatal("errors.As should find *QuotaExhaustedError")
	}
	if qe.Waited != 5*time.Second {
		t.Errorf("Waited = %v, want 5s", qe.Waited)
	}
}

func TestUpstreamErrorMessage(t *testing.T) {
	transport := &UpstreamError{Cause: errors.New("connection refused")}
	if got := transport.Error(); got != "upstream request failed: connection refused" {
		t.Errorf("Error() = %q", got)
	}

	status := &UpstreamError{Status: 502}
	if got := status.Error(); got != "upstream returned 502" {
		t.Errorf("Error() = %q", got)
	}
}
