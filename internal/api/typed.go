package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// DecodePolicy controls when a typed result attempts to decode its body.
type DecodePolicy int

const (
	// DecodeStrict decodes only when neither IsNetworkError nor IsHTTPError
	// holds. It is the default.
	DecodeStrict DecodePolicy = iota
	// DecodeLenient decodes whenever the exchange completed, including HTTP
	// error bodies that carry a structured payload.
	DecodeLenient
)

// ParseDecodePolicy parses "strict" or "lenient".
func ParseDecodePolicy(s string) (DecodePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return DecodeStrict, nil
	case "lenient":
		return DecodeLenient, nil
	default:
		return DecodeStrict, fmt.Errorf("invalid decode policy %q: must be strict or lenient", s)
	}
}

func (p DecodePolicy) String() string {
	if p == DecodeLenient {
		return "lenient"
	}
	return "strict"
}

func (p DecodePolicy) allows(r *Result) bool {
	if r.IsNetworkError {
		return false
	}
	if p == DecodeLenient {
		return true
	}
	return !r.IsHTTPError
}

// TypedResult is a Result whose body has been decoded into T.
//
// Content holds the zero value of T when decoding was not attempted or
// failed. A decode failure is recorded in DecodeErr and is not a failure of
// the call itself.
type TypedResult[T any] struct {
	*Result
	Content   T
	DecodeErr error
}

// NewTypedResult decodes r's body into T according to policy.
func NewTypedResult[T any](r *Result, c Codec, policy DecodePolicy) *TypedResult[T] {
	tr := &TypedResult[T]{Result: r}
	if !policy.allows(r) || strings.TrimSpace(r.StringContent) == "" {
		return tr
	}
	var content T
	if err := c.Unmarshal([]byte(r.StringContent), &content); err != nil {
		tr.DecodeErr = &DecodeError{URL: r.URL, Method: r.Method, Err: err}
		slog.Warn("can't decode response content",
			"method", r.Method,
			"url", r.URL,
			"status", r.ResponseCode,
			"request_content_type", r.RequestContent.ContentType,
			"body_bytes", len(r.StringContent),
			"error", err)
		return tr
	}
	tr.Content = content
	return tr
}

// DoAs issues a request through d and decodes the body into T.
func DoAs[T any](ctx context.Context, d Dispatcher, method string, req Request) *TypedResult[T] {
	return NewTypedResult[T](d.Do(ctx, method, req), d.Codec(), d.DecodePolicy())
}

// GetAs performs a GET and decodes the body into T.
func GetAs[T any](ctx context.Context, d Dispatcher, req Request) *TypedResult[T] {
	return DoAs[T](ctx, d, http.MethodGet, req)
}

// DeleteAs performs a DELETE and decodes the body into T.
func DeleteAs[T any](ctx context.Context, d Dispatcher, req Request) *TypedResult[T] {
	return DoAs[T](ctx, d, http.MethodDelete, req)
}

// PostAs performs a POST and decodes the body into T.
func PostAs[T any](ctx context.Context, d Dispatcher, req Request) *TypedResult[T] {
	return DoAs[T](ctx, d, http.MethodPost, req)
}

// PutAs performs a PUT and decodes the body into T.
func PutAs[T any](ctx context.Context, d Dispatcher, req Request) *TypedResult[T] {
	return DoAs[T](ctx, d, http.MethodPut, req)
}

// PatchAs performs a PATCH and decodes the body into T.
func PatchAs[T any](ctx context.Context, d Dispatcher, req Request) *TypedResult[T] {
	return DoAs[T](ctx, d, http.MethodPatch, req)
}
