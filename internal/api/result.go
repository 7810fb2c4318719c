package api

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// NoResponseCode is the ResponseCode of a result without a usable status.
const NoResponseCode = -1

// Result is the outcome of one request. It is built once per call and is
// not modified afterwards.
type Result struct {
	URL                string             `json:"url"`
	Method             string             `json:"method"`
	RequestContent     RequestContent     `json:"request_content"`
	AuthorizationToken string             `json:"-"`
	AuthHeaderSettings AuthHeaderSettings `json:"auth_header_settings"`
	ResponseCode       int                `json:"response_code"`
	IsHTTPError        bool               `json:"is_http_error"`
	IsNetworkError     bool               `json:"is_network_error"`
	StringContent      string             `json:"string_content"`
	Error              string             `json:"error,omitempty"`
	Header             http.Header        `json:"-"`
	Duration           time.Duration      `json:"-"`

	cause error
}

// NewResult finalizes r and returns it.
//
// A network error always clears the status code and body. An HTTP error
// without a transport-level error text gets its Error filled from the
// classifier here, once.
func NewResult(r Result) *Result {
	res := r
	if res.IsNetworkError {
		res.ResponseCode = NoResponseCode
		res.StringContent = ""
	}
	if res.IsHTTPError && res.Error == "" {
		res.Error = ExtractMessage(&res)
	}
	return &res
}

// IsError reports whether the request failed at the HTTP or network level.
func (r *Result) IsError() bool {
	return r.IsHTTPError || r.IsNetworkError
}

// IsSuccess reports whether the exchange completed with a 2xx status.
func (r *Result) IsSuccess() bool {
	return !r.IsError()
}

// Message returns the human-readable message for a failed result.
func (r *Result) Message() string {
	return ExtractMessage(r)
}

// Err converts a failed result to a *NetworkError or *APIError.
// It returns nil for a successful result.
func (r *Result) Err() error {
	switch {
	case r.IsNetworkError:
		return &NetworkError{Method: r.Method, URL: r.URL, Reason: r.Error, Err: r.cause}
	case r.IsHTTPError:
		return &APIError{
			StatusCode: r.ResponseCode,
			Body:       r.StringContent,
			Message:    r.Error,
			RequestID:  requestIDFromHeader(r.Header),
		}
	default:
		return nil
	}
}

// ErrorCode classifies a failed result. It is empty on success.
func (r *Result) ErrorCode() ErrorCode {
	switch {
	case r.IsNetworkError:
		if errors.Is(r.cause, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ErrNetwork
	case r.IsHTTPError:
		return ErrorCodeFromStatus(r.ResponseCode)
	default:
		return ""
	}
}

// Clone returns a copy of r, including its response headers.
func (r *Result) Clone() *Result {
	c := *r
	c.Header = r.Header.Clone()
	return &c
}
