package api

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Messages returned by the classifier when no better text is available.
const (
	NetworkErrorMessage = "Network Error"
	UnknownErrorMessage = "Unknown Error"
	ClientErrorMessage  = "Client Error"
	ServerErrorMessage  = "Server Error"
)

var reasonPhrases = map[int]string{
	400: "Bad Request",
	401: "Unauthorized",
	402: "Payment Required",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	407: "Proxy Authentication Required",
	408: "Request Timeout",
	409: "Conflict",
	410: "Gone",
	411: "Length Required",
	412: "Precondition Failed",
	413: "Request Entity Too Large",
	414: "Request-url Too Long",
	415: "Unsupported Media Type",
	416: "Requested Range Not Satisfiable",
	417: "Expectation Failed",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
	505: "HTTP Version Not Supported",
}

// messageKeys are looked up in order when extracting a message from an
// error body.
var messageKeys = []string{"error", "Error", "message", "Message"}

// ReasonPhrase maps a status code to a short English reason.
func ReasonPhrase(code int) string {
	if phrase, ok := reasonPhrases[code]; ok {
		return phrase
	}
	switch {
	case code >= 400 && code < 500:
		return ClientErrorMessage
	case code >= 500 && code < 600:
		return ServerErrorMessage
	default:
		return UnknownErrorMessage
	}
}

// ExtractMessage returns a human-readable message for a result.
//
// Network errors always yield "Network Error". Otherwise the body is parsed
// as a flat JSON object and the first of error, Error, message, Message is
// returned. A body that is not a JSON object falls back to the status
// reason phrase; an object without any of the keys yields "Unknown Error".
func ExtractMessage(r *Result) string {
	if r == nil {
		return UnknownErrorMessage
	}
	if r.IsNetworkError {
		return NetworkErrorMessage
	}
	return messageFromBody(r.StringContent, r.ResponseCode)
}

func messageFromBody(body string, code int) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil || fields == nil {
		return ReasonPhrase(code)
	}
	for _, key := range messageKeys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		return rawToText(raw)
	}
	return UnknownErrorMessage
}

// rawToText renders a JSON value the way a loosely typed lookup would:
// strings unquoted, everything else as compact JSON text.
func rawToText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return buf.String()
}
