package client

import (
	"errors"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{
			name:       "client error should not retry",
			errorClass: ErrorClassClient,
			expected:   false,
		},
		{
			name:       "server error should retry",
			errorClass: ErrorClassServer,
			expected:   true,
		},
		{
			name:       "rate limit should retry",
			errorClass: ErrorClassRateLimit,
			expected:   true,
		},
		{
			name:       "network error should retry",
			errorClass: ErrorClassNetwork,
			expected:   true,
		},
		{
			name:       "empty error class should not retry",
			errorClass: "",
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shouldRetry(tt.errorClass)
			if result != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, result, tt.expected)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		statusCode int
		expected   ErrorClass
	}{
		{200, ""},
		{304, ""},
		{400, ErrorClassClient},
		{403, ErrorClassClient},
		{404, ErrorClassClient},
		{429, ErrorClassRateLimit},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.statusCode); got != tt.expected {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.statusCode, got, tt.expected)
		}
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "error with wrapped error",
			apiError: &APIError{
				StatusCode: 500,
				ErrorClass: ErrorClassServer,
				Message:    "internal server error",
				Err:        errors.New("connection refused"),
			},
			expected: "news api server error (status 500): internal server error: connection refused",
		},
		{
			name: "error without wrapped error",
			apiError: &APIError{
				StatusCode: 404,
				ErrorClass: ErrorClassClient,
				Message:    "not found",
			},
			expected: "news api client error (status 404): not found",
		},
		{
			name: "rate limit error",
			apiError: &APIError{
				StatusCode: 429,
				ErrorClass: ErrorClassRateLimit,
				Message:    "too many requests",
			},
			expected: "news api rate_limit error (status 429): too many requests",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.apiError.Error()
			if result != tt.expected {
				t.Errorf("Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	wrappedErr := errors.New("wrapped error")
	apiError := &APIError{
		StatusCode: 500,
		ErrorClass: ErrorClassServer,
		Message:    "server error",
		Err:        wrappedErr,
	}

	if unwrapped := apiError.Unwrap(); unwrapped != wrappedErr {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, wrappedErr)
	}
	if !errors.Is(apiError, wrappedErr) {
		t.Error("errors.Is should work with wrapped error")
	}

	var target *APIError
	if !errors.As(error(apiError), &target) {
		t.Error("errors.As should find *APIError")
	}
}

func TestAPIError_UnwrapNil(t *testing.T) {
	apiError := &APIError{
		StatusCode: 404,
		ErrorClass: ErrorClassClient,
		Message:    "not found",
	}

	if unwrapped := apiError.Unwrap(); unwrapped != nil {
		t.Errorf("Unwrap() = %v, want nil", unwrapped)
	}
}
