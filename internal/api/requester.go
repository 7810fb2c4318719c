package api

import (
	"context"
	"net/http"
)

// Exchange is a single outbound request handed to a Transport.
type Exchange struct {
	URL    string
	Method string
	Header http.Header
	// Body is nil for verbs that carry no payload.
	Body []byte
}

// Outcome is what a Transport reports once an exchange has finished.
//
// A transport that could not complete the exchange sets IsNetworkError and
// leaves StatusCode at -1. A completed exchange with a status outside 2xx
// sets IsHTTPError and carries the response body.
type Outcome struct {
	StatusCode     int
	IsNetworkError bool
	IsHTTPError    bool
	Body           string
	Header         http.Header
	// Error is the low-level error text produced by the transport, if any.
	Error string
}

// Transport performs the network exchange. It is the only component that
// touches physical I/O.
//
// Send blocks until the exchange completes or ctx is done. Returning a
// non-nil error (or panicking) is treated by the Client as a network error;
// the failure never escapes the call.
type Transport interface {
	Send(ctx context.Context, ex *Exchange) (*Outcome, error)
}

// Codec encodes request bodies and decodes response bodies.
//
// Implementations omit null-valued fields when encoding.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Observer receives every Result produced by a Client. It is called after
// the Result is fully constructed.
type Observer interface {
	ObserveResult(r *Result)
}

// Dispatcher is the request surface used by the typed helpers.
//
// It is satisfied by *Client and lets callers substitute a scripted
// implementation in tests without a transport.
type Dispatcher interface {
	// Do issues one request for the given verb.
	Do(ctx context.Context, method string, req Request) *Result

	// Codec returns the codec used to decode typed results.
	Codec() Codec

	// DecodePolicy reports when typed results attempt decoding.
	DecodePolicy() DecodePolicy
}

// IsHTTPErrorStatus reports whether a completed exchange with this status
// code is classified as an HTTP error.
func IsHTTPErrorStatus(code int) bool {
	return code < 200 || code >= 300
}
