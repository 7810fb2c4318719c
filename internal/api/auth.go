package api

import (
	"fmt"
	"strings"
)

// JSONContentType is the MIME type used for encoded request bodies.
const JSONContentType = "application/json"

// AuthHeaderSettings names the header that carries a credential and the
// prefix written before the credential value.
type AuthHeaderSettings struct {
	Header string `json:"header"`
	Prefix string `json:"prefix"`
}

var (
	// BearerAuth sends "Authorization: Bearer <token>".
	BearerAuth = AuthHeaderSettings{Header: "Authorization", Prefix: "Bearer "}
	// APIKeyAuth sends "x-api-key: <key>".
	APIKeyAuth = AuthHeaderSettings{Header: "x-api-key", Prefix: ""}
)

// Value returns the header value for the given credential.
func (s AuthHeaderSettings) Value(credential string) string {
	return s.Prefix + credential
}

// IsZero reports whether no header name is configured.
func (s AuthHeaderSettings) IsZero() bool {
	return strings.TrimSpace(s.Header) == ""
}

// AuthPreset resolves a well-known preset name ("bearer", "api-key").
func AuthPreset(name string) (AuthHeaderSettings, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "bearer":
		return BearerAuth, nil
	case "api-key", "apikey", "x-api-key":
		return APIKeyAuth, nil
	default:
		return AuthHeaderSettings{}, fmt.Errorf("unknown auth preset %q: must be bearer or api-key", name)
	}
}

// RequestContent is an encoded request payload and its MIME type.
type RequestContent struct {
	ContentType string `json:"content_type"`
	Body        string `json:"body"`
}

// EmptyJSONContent is the payload sent by body-carrying verbs when the
// caller supplies no body.
func EmptyJSONContent() RequestContent {
	return RequestContent{ContentType: JSONContentType, Body: "{}"}
}

// JSONContent encodes v with the codec. A nil v yields EmptyJSONContent.
func JSONContent(c Codec, v any) (RequestContent, error) {
	if v == nil {
		return EmptyJSONContent(), nil
	}
	data, err := c.Marshal(v)
	if err != nil {
		return RequestContent{}, err
	}
	return RequestContent{ContentType: JSONContentType, Body: string(data)}, nil
}
