package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/restclient/restclient/internal/api"
)

// HTTP sends exchanges with a net/http client.
type HTTP struct {
	client *http.Client
}

// Compile-time interface implementation check
var _ api.Transport = (*HTTP)(nil)

// NewHTTP creates a net/http transport. TLS 1.2 is the minimum version.
func NewHTTP(opts ...Option) *HTTP {
	cfg := newConfig(opts)
	return &HTTP{
		client: &http.Client{Transport: cfg.httpTransport()},
	}
}

func (t *HTTP) Send(ctx context.Context, ex *api.Exchange) (*api.Outcome, error) {
	var body io.Reader
	if ex.Body != nil {
		body = bytes.NewReader(ex.Body)
	}
	req, err := http.NewRequestWithContext(ctx, ex.Method, ex.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range ex.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return networkOutcome(err), nil
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkOutcome(fmt.Errorf("failed to read response: %w", err)), nil
	}
	return responseOutcome(resp.StatusCode, respBody, resp.Header), nil
}
