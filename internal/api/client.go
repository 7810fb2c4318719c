package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/restclient/restclient/internal/codec"
	"github.com/restclient/restclient/internal/debug"
)

const (
	DefaultAppID      = "restclient"
	DefaultAppVersion = "dev"

	// RequestIDHeader carries the per-request correlation id.
	RequestIDHeader = "X-Request-Id"
)

// Options configures a Client.
type Options struct {
	// Transport performs the exchange. Required.
	Transport Transport
	// Codec encodes bodies and decodes typed results. Defaults to codec.JSON.
	Codec Codec
	// Counters receives in-flight bookkeeping. Defaults to a fresh instance.
	Counters *RequestCounters
	// AppID and AppVersion identify the caller in the User-Agent header.
	AppID      string
	AppVersion string
	// DefaultAuth is used when a Request carries no AuthHeaderSettings.
	// Defaults to BearerAuth.
	DefaultAuth AuthHeaderSettings
	// DecodePolicy controls typed decoding. Defaults to DecodeStrict.
	DecodePolicy DecodePolicy
	// Timeout bounds each exchange. Zero means no deadline beyond ctx.
	Timeout time.Duration
	// Observer, when set, receives every Result.
	Observer Observer
	// RequestID is sent as X-Request-Id on every call. RequestIDFunc, when
	// set and RequestID is empty, produces a fresh id per call.
	RequestID     string
	RequestIDFunc func() string
}

// Request describes one call. Every field except URL is optional.
type Request struct {
	// URL is the absolute target URL.
	URL string
	// Query is appended to URL via BuildQueryString.
	Query map[string]any
	// Params is appended after Query, in order, via BuildQueryParams.
	Params []QueryParam
	// Token is the credential; empty sends no auth header.
	Token string
	// Auth overrides the client's default AuthHeaderSettings.
	Auth *AuthHeaderSettings
	// Headers are extra request headers.
	Headers map[string]string
	// Body is encoded with the client codec for POST, PUT and PATCH.
	Body any
	// Content is a pre-encoded body and takes precedence over Body.
	Content *RequestContent
	// Uncounted excludes this call from RequestCounters.
	Uncounted bool
}

// Client is the verb dispatcher. It is safe for concurrent use.
type Client struct {
	transport     Transport
	codec         Codec
	counters      *RequestCounters
	userAgent     string
	defaultAuth   AuthHeaderSettings
	decodePolicy  DecodePolicy
	timeout       time.Duration
	observer      Observer
	requestID     string
	requestIDFunc func() string
}

// Compile-time interface implementation check
var _ Dispatcher = (*Client)(nil)

// New creates a Client from opts.
func New(opts Options) *Client {
	c := &Client{
		transport:     opts.Transport,
		codec:         opts.Codec,
		counters:      opts.Counters,
		defaultAuth:   opts.DefaultAuth,
		decodePolicy:  opts.DecodePolicy,
		timeout:       opts.Timeout,
		observer:      opts.Observer,
		requestID:     opts.RequestID,
		requestIDFunc: opts.RequestIDFunc,
		userAgent:     UserAgent(opts.AppID, opts.AppVersion),
	}
	if c.codec == nil {
		c.codec = codec.JSON{}
	}
	if c.counters == nil {
		c.counters = NewRequestCounters()
	}
	if c.defaultAuth.IsZero() {
		c.defaultAuth = BearerAuth
	}
	return c
}

// UserAgent builds the User-Agent value identifying app, version and platform.
func UserAgent(appID, appVersion string) string {
	if appID == "" {
		appID = DefaultAppID
	}
	if appVersion == "" {
		appVersion = DefaultAppVersion
	}
	return fmt.Sprintf("%s/%s (restclient; %s; %s/%s)", appID, appVersion,
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Codec returns the client's codec.
func (c *Client) Codec() Codec { return c.codec }

// DecodePolicy returns the client's typed decoding policy.
func (c *Client) DecodePolicy() DecodePolicy { return c.decodePolicy }

// Counters returns the counters this client updates.
func (c *Client) Counters() *RequestCounters { return c.counters }

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, req Request) *Result {
	return c.Do(ctx, http.MethodGet, req)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, req Request) *Result {
	return c.Do(ctx, http.MethodDelete, req)
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, req Request) *Result {
	return c.Do(ctx, http.MethodPost, req)
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, req Request) *Result {
	return c.Do(ctx, http.MethodPut, req)
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, req Request) *Result {
	return c.Do(ctx, http.MethodPatch, req)
}

// Do builds, sends and classifies one request. It never panics and never
// returns nil; every failure is described by the Result.
func (c *Client) Do(ctx context.Context, method string, req Request) *Result {
	method = strings.ToUpper(method)
	suppressed := c.counters.ConsumeSuppression() || req.Uncounted

	target := appendQuery(req.URL, BuildQueryString(req.Query))
	target = appendQuery(target, BuildQueryParams(req.Params...))

	auth := c.defaultAuth
	if req.Auth != nil {
		auth = *req.Auth
	}

	base := Result{
		URL:                target,
		Method:             method,
		AuthorizationToken: req.Token,
		AuthHeaderSettings: auth,
		ResponseCode:       NoResponseCode,
	}

	ex := &Exchange{URL: target, Method: method, Header: c.buildHeader(req, auth)}
	if carriesBody(method) {
		content, err := c.requestContent(req)
		if err != nil {
			base.IsNetworkError = true
			base.Error = fmt.Sprintf("encode request body: %v", err)
			base.cause = err
			return c.finish(ctx, 0, base)
		}
		base.RequestContent = content
		ex.Body = []byte(content.Body)
		ex.Header.Set("Content-Type", content.ContentType)
	}

	id := debug.NextRequestID()
	if debug.IsEnabled(ctx) {
		slog.Debug("request start", "id", id, "method", method, "url", target,
			"auth_header", authHeaderName(req.Token, auth), "body_bytes", len(ex.Body))
	}

	start := time.Now()
	if !suppressed {
		c.counters.Begin(method)
	}
	out, cause, err := c.send(ctx, ex)
	if !suppressed {
		c.counters.End(method)
	}
	base.Duration = time.Since(start)

	switch {
	case err != nil:
		base.IsNetworkError = true
		base.Error = err.Error()
		base.cause = err
	case out == nil:
		base.IsNetworkError = true
		base.Error = "transport returned no outcome"
	case out.IsNetworkError:
		base.IsNetworkError = true
		base.Error = out.Error
		base.cause = cause
		if base.cause == nil && out.Error != "" {
			base.cause = errors.New(out.Error)
		}
	default:
		base.ResponseCode = out.StatusCode
		base.IsHTTPError = out.IsHTTPError
		base.StringContent = out.Body
		base.Header = out.Header
		base.Error = out.Error
	}
	return c.finish(ctx, id, base)
}

func (c *Client) finish(ctx context.Context, id uint32, r Result) *Result {
	res := NewResult(r)
	if debug.IsEnabled(ctx) {
		if res.IsError() {
			slog.Debug("request failed", "id", id, "method", res.Method, "url", res.URL,
				"status", res.ResponseCode, "error", res.Error, "duration", res.Duration)
		} else {
			slog.Debug("request complete", "id", id, "method", res.Method, "url", res.URL,
				"status", res.ResponseCode, "body_bytes", len(res.StringContent), "duration", res.Duration)
		}
	}
	if c.observer != nil {
		c.observer.ObserveResult(res)
	}
	return res
}

// send invokes the transport, converting a panic into an error. cause is
// the context error observed once the transport returns.
func (c *Client) send(ctx context.Context, ex *Exchange) (out *Outcome, cause error, err error) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("transport panicked", "method", ex.Method, "url", ex.URL, "panic", p)
			out, cause, err = nil, nil, fmt.Errorf("transport panic: %v", p)
		}
	}()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	out, err = c.transport.Send(ctx, ex)
	return out, ctx.Err(), err
}

func (c *Client) buildHeader(req Request, auth AuthHeaderSettings) http.Header {
	h := make(http.Header)
	h.Set("User-Agent", c.userAgent)
	h.Set("Accept", JSONContentType)
	for k, v := range req.Headers {
		h.Set(k, v)
	}
	if h.Get(RequestIDHeader) == "" {
		if id := c.nextRequestID(); id != "" {
			h.Set(RequestIDHeader, id)
		}
	}
	if req.Token != "" && !auth.IsZero() {
		h.Set(auth.Header, auth.Value(req.Token))
	}
	return h
}

func (c *Client) nextRequestID() string {
	if c.requestID != "" {
		return c.requestID
	}
	if c.requestIDFunc != nil {
		return c.requestIDFunc()
	}
	return ""
}

func (c *Client) requestContent(req Request) (RequestContent, error) {
	if req.Content != nil {
		return *req.Content, nil
	}
	return JSONContent(c.codec, req.Body)
}

func carriesBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

func authHeaderName(token string, auth AuthHeaderSettings) string {
	if token == "" {
		return ""
	}
	return auth.Header
}
