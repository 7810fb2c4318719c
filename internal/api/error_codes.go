package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode represents machine-readable error codes.
type ErrorCode string

const (
	// ErrBadRequest indicates a malformed request (HTTP 400).
	ErrBadRequest ErrorCode = "bad_request"
	// ErrUnauthorized indicates authentication is required or failed (HTTP 401).
	ErrUnauthorized ErrorCode = "unauthorized"
	// ErrForbidden indicates the credential lacks permission (HTTP 403).
	ErrForbidden ErrorCode = "forbidden"
	// ErrNotFound indicates the requested resource does not exist (HTTP 404).
	ErrNotFound ErrorCode = "not_found"
	// ErrConflict indicates a conflict with current state (HTTP 409).
	ErrConflict ErrorCode = "conflict"
	// ErrValidation indicates input validation failed (HTTP 422).
	ErrValidation ErrorCode = "validation_failed"
	// ErrRateLimited indicates too many requests (HTTP 429).
	ErrRateLimited ErrorCode = "rate_limited"
	// ErrServerError indicates a server-side failure (HTTP 5xx).
	ErrServerError ErrorCode = "server_error"
	// ErrTimeout indicates the exchange did not finish before its deadline.
	ErrTimeout ErrorCode = "timeout"
	// ErrNetwork indicates the exchange failed at the transport layer.
	ErrNetwork ErrorCode = "network_error"
	// ErrDecode indicates a response body could not be decoded.
	ErrDecode ErrorCode = "decode_failed"
	// ErrUnknown indicates an unknown or unclassified error.
	ErrUnknown ErrorCode = "unknown"
)

type codeInfo struct {
	retryable  bool
	suggestion string
}

var codes = map[ErrorCode]codeInfo{
	ErrUnauthorized: {suggestion: "Check the credential, or run 'restclient auth login'"},
	ErrForbidden:    {suggestion: "Check that the credential has the required permissions"},
	ErrNotFound:     {suggestion: "Verify the URL and resource identifier"},
	ErrRateLimited:  {retryable: true, suggestion: "Wait a moment and retry"},
	ErrValidation:   {suggestion: "Check the request body and parameters"},
	ErrBadRequest:   {suggestion: "Check the request body and parameters"},
	ErrConflict:     {suggestion: "The resource state may have changed; refresh and retry"},
	ErrServerError:  {retryable: true, suggestion: "The server encountered an error; try again later"},
	ErrTimeout:      {retryable: true, suggestion: "The request timed out; raise --timeout or check connectivity"},
	ErrNetwork:      {retryable: true, suggestion: "Check the URL, DNS and network connectivity"},
	ErrDecode:       {suggestion: "The response did not match the expected shape"},
}

// IsRetryable reports whether a request failing with c may succeed later.
func (c ErrorCode) IsRetryable() bool { return codes[c].retryable }

// Suggestion is a short hint for resolving c, or "".
func (c ErrorCode) Suggestion() string { return codes[c].suggestion }

var statusCodes = map[int]ErrorCode{
	400: ErrBadRequest,
	401: ErrUnauthorized,
	403: ErrForbidden,
	404: ErrNotFound,
	408: ErrTimeout,
	409: ErrConflict,
	422: ErrValidation,
	429: ErrRateLimited,
}

// ErrorCodeFromStatus maps an HTTP status code to an ErrorCode. Any 5xx is
// a server error; unmapped codes are ErrUnknown.
func ErrorCodeFromStatus(statusCode int) ErrorCode {
	if code, ok := statusCodes[statusCode]; ok {
		return code
	}
	if statusCode >= 500 && statusCode < 600 {
		return ErrServerError
	}
	return ErrUnknown
}

// StructuredError provides machine-readable error information.
type StructuredError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	Suggestion string         `json:"suggestion,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// MarshalJSON implements custom JSON marshaling.
func (e *StructuredError) MarshalJSON() ([]byte, error) {
	type Alias StructuredError
	return json.Marshal((*Alias)(e))
}

// NewStructuredError creates a StructuredError from an ErrorCode and message.
func NewStructuredError(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:       code,
		Message:    message,
		Retryable:  code.IsRetryable(),
		Suggestion: code.Suggestion(),
	}
}

// StructuredErrorFromAPIError converts an APIError to a StructuredError.
func StructuredErrorFromAPIError(apiErr *APIError) *StructuredError {
	se := NewStructuredError(ErrorCodeFromStatus(apiErr.StatusCode), apiErr.Message)
	se.Context = map[string]any{
		"status_code": apiErr.StatusCode,
	}
	if apiErr.RequestID != "" {
		se.Context["request_id"] = apiErr.RequestID
	}
	return se
}

// StructuredErrorFromError attempts to convert any error to a StructuredError.
func StructuredErrorFromError(err error) *StructuredError {
	if err == nil {
		return nil
	}

	var se *StructuredError
	if errors.As(err, &se) {
		return se
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return StructuredErrorFromAPIError(apiErr)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewStructuredError(ErrTimeout, err.Error())
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		se := NewStructuredError(ErrNetwork, err.Error())
		se.Context = map[string]any{"method": netErr.Method, "url": netErr.URL}
		return se
	}

	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return NewStructuredError(ErrDecode, err.Error())
	}

	return &StructuredError{
		Code:    ErrUnknown,
		Message: err.Error(),
	}
}
