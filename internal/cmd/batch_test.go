package cmd

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restclient/restclient/internal/batch"
)

const testPlan = `
concurrency: 2
requests:
  - name: list users
    path: /users
    query: {page: 2}
  - method: post
    path: /users
    body: {name: Ada}
  - name: missing
    method: DELETE
    path: /users/9
`

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func batchHandler(runIDs *[]string, mu *sync.Mutex) http.Handler {
	record := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			*runIDs = append(*runIDs, r.Header.Get(batch.RunIDHeader))
			mu.Unlock()
			next(w, r)
		}
	}
	return newRouteHandler().
		On("GET", "/users", record(jsonResponse(200, `[{"id":1}]`))).
		On("POST", "/users", record(jsonResponse(201, `{"id":2}`))).
		On("DELETE", "/users/9", record(jsonResponse(404, `{"error":"no such user"}`)))
}

func TestBatch_TextReport(t *testing.T) {
	var mu sync.Mutex
	var runIDs []string
	setupTestEnvWithHandler(t, batchHandler(&runIDs, &mu))

	stdout, _, err := runCmd(t, "", "batch", writePlan(t, testPlan))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 batch requests failed")
	assert.Equal(t, exitNotFound, ExitCode(err))

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Contains(t, lines[0], "list users")
	assert.Contains(t, lines[0], "200")
	assert.Contains(t, lines[1], "POST /users")
	assert.Contains(t, lines[1], "201")
	assert.Contains(t, lines[2], "missing")
	assert.Contains(t, lines[2], "404  no such user")
	assert.Contains(t, stdout, "3 requests, 1 failed")

	require.Len(t, runIDs, 3)
	assert.NotEmpty(t, runIDs[0])
	assert.Equal(t, runIDs[0], runIDs[1])
	assert.Equal(t, runIDs[0], runIDs[2])
}

func TestBatch_JSONFromStdin(t *testing.T) {
	var mu sync.Mutex
	var runIDs []string
	setupTestEnvWithHandler(t, batchHandler(&runIDs, &mu))

	stdout, _, err := runCmd(t, testPlan, "batch", "-", "--json", "--concurrency", "1")
	require.Error(t, err)

	var payload struct {
		RunID    string `json:"run_id"`
		Total    int    `json:"total"`
		Failed   int    `json:"failed"`
		Requests []struct {
			Index   int    `json:"index"`
			Name    string `json:"name"`
			Status  int    `json:"status"`
			Method  string `json:"method"`
			URL     string `json:"url"`
			Message string `json:"message"`
		} `json:"requests"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &payload))
	assert.NotEmpty(t, payload.RunID)
	assert.Equal(t, 3, payload.Total)
	assert.Equal(t, 1, payload.Failed)
	require.Len(t, payload.Requests, 3)
	assert.Equal(t, "list users", payload.Requests[0].Name)
	assert.True(t, strings.HasSuffix(payload.Requests[0].URL, "/users?page=2"), payload.Requests[0].URL)
	assert.Equal(t, "POST", payload.Requests[1].Method)
	assert.Equal(t, 404, payload.Requests[2].Status)
	assert.Equal(t, "no such user", payload.Requests[2].Message)
}

func TestBatch_AllSucceedWithMetrics(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler().On("GET", "/ok", jsonResponse(200, `{}`)))

	plan := "requests:\n  - path: /ok\n  - path: /ok\n"
	stdout, _, err := runCmd(t, "", "batch", writePlan(t, plan), "--metrics", "--rate", "100")
	require.NoError(t, err)
	assert.Contains(t, stdout, "2 requests, 0 failed")
	assert.Contains(t, stdout, "restclient_requests_total")
	assert.Contains(t, stdout, `method="GET"`)
}

func TestBatch_Errors(t *testing.T) {
	useTestKeyring(t)
	t.Setenv("RESTCLIENT_BASE_URL", "")

	_, _, err := runCmd(t, "", "batch", writePlan(t, "requests: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no requests")

	_, _, err = runCmd(t, "", "batch", writePlan(t, "requests:\n  - path: /x\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errNoBaseURL)

	_, _, err = runCmd(t, "", "batch", writePlan(t, "requests:\n  - path: http://169.254.169.254/\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metadata")

	_, _, err = runCmd(t, "", "batch", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, _, err = runCmd(t, "", "batch", writePlan(t, "requests:\n  - path: /x\n"), "--concurrency", "-1")
	require.Error(t, err)
	assert.Equal(t, exitUsage, ExitCode(err))
}
