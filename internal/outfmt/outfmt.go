// Package outfmt renders command results as text, JSON or JSON lines.
package outfmt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Mode represents the output format mode
type Mode int

const (
	// Text is the default human-readable output
	Text Mode = iota
	// JSON outputs structured JSON
	JSON
	// JSONL outputs newline-delimited JSON, one value per line
	JSONL
)

// Parse parses an output mode string
func Parse(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "":
		return Text, nil
	case "json":
		return JSON, nil
	case "jsonl", "ndjson":
		return JSONL, nil
	default:
		return Text, fmt.Errorf("invalid output format: %q (use 'text', 'json', 'jsonl' or 'ndjson')", s)
	}
}

func (m Mode) String() string {
	switch m {
	case JSON:
		return "json"
	case JSONL:
		return "jsonl"
	default:
		return "text"
	}
}

// settings is everything the output flags put into a command context.
type settings struct {
	mode     Mode
	compact  bool
	query    string
	template string
}

type settingsKey struct{}

func settingsFrom(ctx context.Context) settings {
	s, _ := ctx.Value(settingsKey{}).(settings)
	return s
}

func with(ctx context.Context, update func(*settings)) context.Context {
	s := settingsFrom(ctx)
	update(&s)
	return context.WithValue(ctx, settingsKey{}, s)
}

// WithMode sets the output mode.
func WithMode(ctx context.Context, mode Mode) context.Context {
	return with(ctx, func(s *settings) { s.mode = mode })
}

// WithCompact selects single-line JSON.
func WithCompact(ctx context.Context, compact bool) context.Context {
	return with(ctx, func(s *settings) { s.compact = compact })
}

// WithQuery sets the jq expression applied before rendering.
func WithQuery(ctx context.Context, query string) context.Context {
	return with(ctx, func(s *settings) { s.query = query })
}

// WithTemplate sets a text/template that replaces JSON encoding.
func WithTemplate(ctx context.Context, tmpl string) context.Context {
	return with(ctx, func(s *settings) { s.template = tmpl })
}

func ModeFromContext(ctx context.Context) Mode { return settingsFrom(ctx).mode }

// IsJSON reports whether the context asks for JSON or JSON lines.
func IsJSON(ctx context.Context) bool {
	mode := settingsFrom(ctx).mode
	return mode == JSON || mode == JSONL
}

func IsJSONL(ctx context.Context) bool { return settingsFrom(ctx).mode == JSONL }

// IsCompact reports whether JSON is written on a single line. JSON lines
// output is always compact.
func IsCompact(ctx context.Context) bool {
	s := settingsFrom(ctx)
	return s.compact || s.mode == JSONL
}

func GetQuery(ctx context.Context) string    { return settingsFrom(ctx).query }
func GetTemplate(ctx context.Context) string { return settingsFrom(ctx).template }

// WriteJSON encodes v followed by a newline. URLs and bodies are written
// as is: &, < and > are not escaped.
func WriteJSON(w io.Writer, v any, compact bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
