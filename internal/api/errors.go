package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// NetworkError reports an exchange that could not reach or complete at the
// transport layer. There is no status code and no body.
type NetworkError struct {
	Method string
	URL    string
	Reason string
	// Err is the underlying transport error, when one was returned.
	Err error
}

func (e *NetworkError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = NetworkErrorMessage
	}
	return fmt.Sprintf("%s %s: network error: %s", e.Method, e.URL, reason)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Body       string
	// Message is the classified, human-readable message.
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// DecodeError reports a response body that could not be decoded into the
// requested shape. It is recorded on a TypedResult, never returned by a call.
type DecodeError struct {
	URL    string
	Method string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response from %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsNetworkError checks if the error is a transport-level failure.
func IsNetworkError(err error) bool {
	var e *NetworkError
	return errors.As(err, &e)
}

// IsNotFoundError checks if the error indicates a resource was not found.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// IsAuthError checks if the error is an authentication or authorization failure.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

func requestIDFromHeader(header http.Header) string {
	if header == nil {
		return ""
	}
	if id := header.Get("X-Request-Id"); id != "" {
		return id
	}
	return header.Get("X-Correlation-Id")
}
