// Package transport implements api.Transport over net/http and resty.
package transport

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"

	"github.com/restclient/restclient/internal/api"
)

// Names lists the registered transport names.
var Names = []string{"http", "resty"}

// CertificateValidator decides whether the server's certificate chain is
// acceptable. When one is configured it replaces the default verification.
type CertificateValidator interface {
	ValidateCertificate(cs tls.ConnectionState) error
}

// ValidatorFunc adapts a function to CertificateValidator.
type ValidatorFunc func(cs tls.ConnectionState) error

func (f ValidatorFunc) ValidateCertificate(cs tls.ConnectionState) error {
	return f(cs)
}

// AcceptAnyCertificate accepts every certificate. Use only against trusted
// development endpoints.
type AcceptAnyCertificate struct{}

func (AcceptAnyCertificate) ValidateCertificate(tls.ConnectionState) error {
	return nil
}

// Option configures a transport.
type Option func(*config)

type config struct {
	validator    CertificateValidator
	roundTripper http.RoundTripper
}

// WithCertificateValidator installs a custom certificate validator.
func WithCertificateValidator(v CertificateValidator) Option {
	return func(c *config) {
		c.validator = v
	}
}

// WithRoundTripper replaces the underlying round tripper. TLS settings are
// not applied to a custom round tripper.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(c *config) {
		c.roundTripper = rt
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// ByName builds the transport registered under name. An empty name selects
// the net/http transport.
func ByName(name string, opts ...Option) (api.Transport, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "http":
		return NewHTTP(opts...), nil
	case "resty":
		return NewResty(opts...), nil
	default:
		return nil, fmt.Errorf("unknown transport %q: must be one of %s", name, strings.Join(Names, ", "))
	}
}

func (c *config) tlsConfig() *tls.Config {
	tc := &tls.Config{MinVersion: tls.VersionTLS12}
	if c.validator == nil {
		return tc
	}
	tc.InsecureSkipVerify = true
	v := c.validator
	tc.VerifyConnection = func(cs tls.ConnectionState) error {
		return v.ValidateCertificate(cs)
	}
	return tc
}

func (c *config) httpTransport() http.RoundTripper {
	if c.roundTripper != nil {
		return c.roundTripper
	}
	baseTransport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		baseTransport = &http.Transport{}
	}
	transport := baseTransport.Clone()
	transport.TLSClientConfig = c.tlsConfig()
	return transport
}

func networkOutcome(err error) *api.Outcome {
	return &api.Outcome{
		StatusCode:     api.NoResponseCode,
		IsNetworkError: true,
		Error:          err.Error(),
	}
}

func responseOutcome(status int, body []byte, header http.Header) *api.Outcome {
	return &api.Outcome{
		StatusCode:  status,
		IsHTTPError: api.IsHTTPErrorStatus(status),
		Body:        string(body),
		Header:      header,
	}
}
