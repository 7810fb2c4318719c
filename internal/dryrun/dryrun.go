// Package dryrun previews outbound requests without sending them.
package dryrun

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/restclient/restclient/internal/api"
)

type contextKey string

const dryRunKey contextKey = "dry_run_enabled"

// WithDryRun returns a context with dry-run mode enabled/disabled.
func WithDryRun(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, dryRunKey, enabled)
}

// IsEnabled returns true if dry-run mode is enabled.
func IsEnabled(ctx context.Context) bool {
	if v, ok := ctx.Value(dryRunKey).(bool); ok {
		return v
	}
	return false
}

// Headers whose values are masked in previews.
var sensitiveHeaders = []string{"Authorization", "Proxy-Authorization", "X-Api-Key", "Cookie"}

// Preview is the request a dispatcher would have sent.
type Preview struct {
	Method   string            `json:"method"`
	URL      string            `json:"url"`
	Headers  map[string]string `json:"headers"`
	Body     string            `json:"body,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

// Write outputs the preview to the writer
func (p *Preview) Write(w io.Writer) {
	_, _ = fmt.Fprintf(w, "[DRY-RUN] Would send %s %s\n", p.Method, p.URL)
	_, _ = fmt.Fprintf(w, "───────────────────────────────────────\n")

	names := make([]string, 0, len(p.Headers))
	for name := range p.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "  %s: %s\n", name, p.Headers[name])
	}

	if p.Body != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", p.Body)
	}

	if len(p.Warnings) > 0 {
		_, _ = fmt.Fprintln(w, "\nWarnings:")
		for _, warning := range p.Warnings {
			_, _ = fmt.Fprintf(w, "  ! %s\n", warning)
		}
	}

	_, _ = fmt.Fprintf(w, "───────────────────────────────────────\n")
}

// Transport records exchanges instead of sending them. Every exchange is
// answered with 204 No Content.
type Transport struct {
	// Mask lists extra header names whose values are hidden, such as a
	// custom auth header.
	Mask []string

	mu       sync.Mutex
	previews []Preview
}

// Compile-time interface implementation check
var _ api.Transport = (*Transport)(nil)

// Send records ex.
func (t *Transport) Send(_ context.Context, ex *api.Exchange) (*api.Outcome, error) {
	p := NewPreview(ex, t.Mask...)
	t.mu.Lock()
	t.previews = append(t.previews, p)
	t.mu.Unlock()
	return &api.Outcome{StatusCode: http.StatusNoContent, Header: http.Header{}}, nil
}

// Previews returns the recorded previews in the order they were sent.
func (t *Transport) Previews() []Preview {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Preview(nil), t.previews...)
}

// NewPreview builds a preview of ex with credential headers masked.
func NewPreview(ex *api.Exchange, mask ...string) Preview {
	hidden := make(map[string]bool, len(sensitiveHeaders)+len(mask))
	for _, name := range append(append([]string(nil), sensitiveHeaders...), mask...) {
		if name = strings.TrimSpace(name); name != "" {
			hidden[http.CanonicalHeaderKey(name)] = true
		}
	}

	p := Preview{Method: ex.Method, URL: ex.URL, Headers: make(map[string]string, len(ex.Header)), Body: string(ex.Body)}
	sentCredential := false
	for name, values := range ex.Header {
		value := strings.Join(values, ", ")
		if hidden[http.CanonicalHeaderKey(name)] {
			value = maskValue(value)
			sentCredential = true
		}
		p.Headers[name] = value
	}

	if sentCredential && strings.HasPrefix(strings.ToLower(ex.URL), "http://") {
		p.Warnings = append(p.Warnings, "credential would be sent over plain HTTP")
	}
	if ex.Method == http.MethodDelete {
		p.Warnings = append(p.Warnings, "DELETE is usually irreversible")
	}
	return p
}

// maskValue keeps an auth scheme such as "Bearer" and hides the secret.
func maskValue(v string) string {
	scheme, secret, found := strings.Cut(v, " ")
	if !found {
		secret, scheme = v, ""
	}
	masked := "****"
	if len(secret) > 8 {
		masked = secret[:2] + "****" + secret[len(secret)-2:]
	}
	if scheme != "" {
		return scheme + " " + masked
	}
	return masked
}
