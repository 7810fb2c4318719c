// Package debug provides context-based debug mode with structured logging.
package debug

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
)

type contextKey string

const debugKey contextKey = "debug_enabled"

var requestSeq atomic.Uint32

// WithDebug returns a context with debug mode enabled/disabled.
func WithDebug(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, debugKey, enabled)
}

// IsEnabled returns true if debug mode is enabled in the context.
func IsEnabled(ctx context.Context) bool {
	if v, ok := ctx.Value(debugKey).(bool); ok {
		return v
	}
	return false
}

// NextRequestID returns the next diagnostic request number. After the
// maximum uint32 it wraps back to 1.
func NextRequestID() uint32 {
	id := requestSeq.Add(1)
	if id == 0 {
		id = requestSeq.Add(1)
	}
	return id
}

// SetupLogger configures slog based on debug mode.
func SetupLogger(debugEnabled bool) {
	SetupLoggerTo(os.Stderr, debugEnabled)
}

// SetupLoggerTo is SetupLogger writing to w.
func SetupLoggerTo(w io.Writer, debugEnabled bool) {
	var level slog.Level
	if debugEnabled {
		level = slog.LevelDebug
	} else {
		level = slog.LevelWarn
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactAttr,
	})
	slog.SetDefault(slog.New(handler))
}

const redacted = "REDACTED"

// secretAttrs are attribute keys whose values never reach the log.
var secretAttrs = map[string]bool{
	"token":         true,
	"authorization": true,
	"api_key":       true,
	"password":      true,
	"secret":        true,
}

// secretParams are query parameters that commonly carry credentials.
var secretParams = map[string]bool{
	"token":        true,
	"access_token": true,
	"api_key":      true,
	"apikey":       true,
	"key":          true,
	"password":     true,
	"signature":    true,
	"sig":          true,
}

func redactAttr(_ []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	switch {
	case secretAttrs[key]:
		return slog.String(a.Key, redacted)
	case key == "url" && a.Value.Kind() == slog.KindString:
		return slog.String(a.Key, RedactURL(a.Value.String()))
	}
	return a
}

// RedactURL hides a userinfo password and the values of credential-like
// query parameters. Parameter order is preserved.
func RedactURL(raw string) string {
	base, query, hasQuery := strings.Cut(raw, "?")
	if u, err := url.Parse(base); err == nil && u.User != nil {
		base = u.Redacted()
	}
	if !hasQuery {
		return base
	}

	pairs := strings.Split(query, "&")
	for i, pair := range pairs {
		name, _, hasValue := strings.Cut(pair, "=")
		decoded, err := url.QueryUnescape(name)
		if err != nil {
			decoded = name
		}
		if hasValue && secretParams[strings.ToLower(decoded)] {
			pairs[i] = name + "=" + redacted
		}
	}
	return base + "?" + strings.Join(pairs, "&")
}
