// Test utilities for the restclient commands.
//
// Commands are exercised end-to-end through Execute against an httptest
// server. setupTestEnvWithHandler points RESTCLIENT_BASE_URL at the server,
// so relative paths in command arguments hit the routes registered on a
// routeHandler:
//
//	handler := newRouteHandler().
//	    On("GET", "/users/1", jsonResponse(200, `{"id": 1}`))
//	setupTestEnvWithHandler(t, handler)
//
//	stdout, _, err := runCmd(t, "", "get", "/users/1")
//	require.NoError(t, err)
package cmd

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restclient/restclient/internal/iocontext"
)

// captureStdout executes a function and captures its stdout output.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// captureStderr executes a function and captures its stderr output.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	fn()

	_ = w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// testEnv gives access to the mock server.
type testEnv struct {
	server *httptest.Server
}

// setupTestEnv serves every request with handler.
func setupTestEnv(t *testing.T, handler http.HandlerFunc) *testEnv {
	t.Helper()
	return setupTestEnvWithHandler(t, handler)
}

// setupTestEnvWithHandler starts a test server and points the client
// environment at it:
//   - RESTCLIENT_BASE_URL is the server URL
//   - RESTCLIENT_TOKEN is "test-token"
//   - RESTCLIENT_OUTPUT is "text"
//   - the keyring is a fresh in-memory one
//
// Everything is restored on test cleanup.
func setupTestEnvWithHandler(t *testing.T, handler http.Handler) *testEnv {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	t.Setenv("RESTCLIENT_BASE_URL", server.URL)
	t.Setenv("RESTCLIENT_TOKEN", "test-token")
	t.Setenv("RESTCLIENT_OUTPUT", "text")
	useTestKeyring(t)

	return &testEnv{server: server}
}

// jsonResponse creates an http.HandlerFunc that returns a JSON response with the given status and body.
func jsonResponse(statusCode int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_, _ = w.Write([]byte(body))
	}
}

// routeHandler routes requests by exact "METHOD PATH". Unknown routes get 404.
type routeHandler struct {
	routes map[string]http.HandlerFunc
}

func newRouteHandler() *routeHandler {
	return &routeHandler{routes: make(map[string]http.HandlerFunc)}
}

// On registers a handler for the given HTTP method and path.
func (rh *routeHandler) On(method, path string, handler http.HandlerFunc) *routeHandler {
	rh.routes[method+" "+path] = handler
	return rh
}

func (rh *routeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	if handler, ok := rh.routes[key]; ok {
		handler(w, r)
		return
	}
	http.NotFound(w, r)
}

func TestTestInfrastructure(t *testing.T) {
	t.Run("setupTestEnv sets environment variables", func(t *testing.T) {
		env := setupTestEnv(t, jsonResponse(200, `{"status": "ok"}`))

		assert.Equal(t, env.server.URL, os.Getenv("RESTCLIENT_BASE_URL"))
		assert.Equal(t, "test-token", os.Getenv("RESTCLIENT_TOKEN"))
	})

	t.Run("routeHandler routes requests correctly", func(t *testing.T) {
		handler := newRouteHandler().
			On("GET", "/v1/test", jsonResponse(200, `{"method": "get"}`)).
			On("POST", "/v1/test", jsonResponse(201, `{"method": "post"}`))

		env := setupTestEnvWithHandler(t, handler)

		resp, err := http.Get(env.server.URL + "/v1/test")
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, 200, resp.StatusCode)

		resp, err = http.Post(env.server.URL+"/v1/test", "application/json", nil)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, 201, resp.StatusCode)

		resp, err = http.Get(env.server.URL + "/v1/unknown")
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, 404, resp.StatusCode)
	})
}

// runCmd executes the CLI with in-memory streams. stdin may be empty.
func runCmd(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	ctx := iocontext.WithIO(context.Background(), &iocontext.IO{
		Out:    &out,
		ErrOut: &errOut,
		In:     strings.NewReader(stdin),
	})
	err := Execute(ctx, args)
	return out.String(), errOut.String(), err
}
