package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/restclient/restclient/internal/api"
)

// Resty sends exchanges with a go-resty client. Retries are disabled.
type Resty struct {
	client *resty.Client
}

// Compile-time interface implementation check
var _ api.Transport = (*Resty)(nil)

// NewResty creates a resty-backed transport.
func NewResty(opts ...Option) *Resty {
	cfg := newConfig(opts)
	client := resty.New().
		SetTransport(cfg.httpTransport()).
		SetRetryCount(0).
		SetLogger(slogLogger{})
	return &Resty{client: client}
}

func (t *Resty) Send(ctx context.Context, ex *api.Exchange) (*api.Outcome, error) {
	req := t.client.R().SetContext(ctx)
	if ex.Header != nil {
		req.Header = ex.Header.Clone()
	} else {
		req.Header = http.Header{}
	}
	if ex.Body != nil {
		req.SetBody(ex.Body)
	}

	resp, err := req.Execute(ex.Method, ex.URL)
	if err != nil {
		return networkOutcome(err), nil
	}
	return responseOutcome(resp.StatusCode(), resp.Body(), resp.Header()), nil
}

// slogLogger routes resty's internal logging through slog.
type slogLogger struct{}

func (slogLogger) Errorf(format string, v ...any) {
	slog.Error("resty", "message", fmt.Sprintf(format, v...))
}

func (slogLogger) Warnf(format string, v ...any) {
	slog.Warn("resty", "message", fmt.Sprintf(format, v...))
}

func (slogLogger) Debugf(format string, v ...any) {
	slog.Debug("resty", "message", fmt.Sprintf(format, v...))
}
