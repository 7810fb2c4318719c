package update

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/restclient/restclient/internal/api"
	"github.com/restclient/restclient/internal/transport"
)

func testClient(counters *api.RequestCounters) *api.Client {
	return api.New(api.Options{Transport: transport.NewHTTP(), Counters: counters})
}

// withReleaseServer points ReleasesURL at handler for the duration of the test.
func withReleaseServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	server := httptest.NewServer(handler)
	original := ReleasesURL
	ReleasesURL = server.URL
	t.Cleanup(func() {
		server.Close()
		ReleasesURL = original
	})
}

func releaseJSON(tag string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tag_name":"` + tag + `","html_url":"https://example.com/releases/` + tag + `"}`))
	}
}

func TestNormalizeVersion(t *testing.T) {
	tests := []struct {
		input, expected string
	}{
		{"1.0.0", "v1.0.0"},
		{"v1.0.0", "v1.0.0"},
		{"", "v"},
	}
	for _, tt := range tests {
		if got := normalizeVersion(tt.input); got != tt.expected {
			t.Errorf("normalizeVersion(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestCheckForUpdate_Compare(t *testing.T) {
	tests := []struct {
		name      string
		current   string
		tag       string
		available bool
		latest    string
	}{
		{"newer patch", "1.0.0", "v1.0.1", true, "1.0.1"},
		{"newer major", "v1.9.9", "v2.0.0", true, "2.0.0"},
		{"same version", "1.2.0", "v1.2.0", false, "1.2.0"},
		{"current newer", "2.0.0", "v1.5.0", false, "1.5.0"},
		{"tag without prefix", "1.0.0", "1.1.0", true, "1.1.0"},
		{"prerelease is older", "1.0.0", "v1.0.0-rc1", false, "1.0.0-rc1"},
		{"invalid current", "nightly", "v1.0.0", false, "1.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withReleaseServer(t, releaseJSON(tt.tag))

			result := CheckForUpdate(context.Background(), testClient(nil), tt.current)
			if result == nil {
				t.Fatal("expected a result")
			}
			if result.UpdateAvailable != tt.available {
				t.Errorf("UpdateAvailable = %v, want %v", result.UpdateAvailable, tt.available)
			}
			if result.LatestVersion != tt.latest {
				t.Errorf("LatestVersion = %q, want %q", result.LatestVersion, tt.latest)
			}
			if result.CurrentVersion != tt.current {
				t.Errorf("CurrentVersion = %q", result.CurrentVersion)
			}
			if result.UpdateURL != "https://example.com/releases/"+tt.tag {
				t.Errorf("UpdateURL = %q", result.UpdateURL)
			}
		})
	}
}

func TestCheckForUpdate_ReturnsNil(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"not found", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) }},
		{"rate limited", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) }},
		{"no content", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }},
		{"invalid json", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{not json`)) }},
		{"empty tag", releaseJSON("")},
		{"prerelease", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"tag_name":"v9.0.0","prerelease":true}`))
		}},
		{"draft", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"tag_name":"v9.0.0","draft":true}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withReleaseServer(t, tt.handler)
			if result := CheckForUpdate(context.Background(), testClient(nil), "1.0.0"); result != nil {
				t.Errorf("expected nil, got %+v", result)
			}
		})
	}
}

func TestCheckForUpdate_Skipped(t *testing.T) {
	var hits atomic.Int32
	withReleaseServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		releaseJSON("v9.9.9")(w, r)
	})

	if CheckForUpdate(context.Background(), testClient(nil), "dev") != nil {
		t.Error("dev build should skip the check")
	}
	if CheckForUpdate(context.Background(), testClient(nil), "") != nil {
		t.Error("empty version should skip the check")
	}
	if CheckForUpdate(context.Background(), nil, "1.0.0") != nil {
		t.Error("nil dispatcher should skip the check")
	}
	if hits.Load() != 0 {
		t.Errorf("server hit %d times", hits.Load())
	}
}

func TestCheckForUpdate_Unreachable(t *testing.T) {
	original := ReleasesURL
	ReleasesURL = "http://127.0.0.1:1/releases"
	t.Cleanup(func() { ReleasesURL = original })

	if CheckForUpdate(context.Background(), testClient(nil), "1.0.0") != nil {
		t.Error("expected nil on connection error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if CheckForUpdate(ctx, testClient(nil), "1.0.0") != nil {
		t.Error("expected nil on cancelled context")
	}
}

func TestCheckForUpdate_UncountedAndAcceptHeader(t *testing.T) {
	counters := api.NewRequestCounters()
	var inFlight int64 = -1
	var accept string
	withReleaseServer(t, func(w http.ResponseWriter, r *http.Request) {
		inFlight = counters.Total()
		accept = r.Header.Get("Accept")
		releaseJSON("v1.0.1")(w, r)
	})

	if CheckForUpdate(context.Background(), testClient(counters), "1.0.0") == nil {
		t.Fatal("expected a result")
	}
	if inFlight != 0 {
		t.Errorf("update check was counted: in-flight = %d", inFlight)
	}
	if accept != "application/vnd.github.v3+json" {
		t.Errorf("Accept = %q", accept)
	}
}

func TestCheckResult_WriteNotice(t *testing.T) {
	var buf bytes.Buffer
	(&CheckResult{CurrentVersion: "1.0.0", LatestVersion: "1.1.0", UpdateURL: "https://example.com/r", UpdateAvailable: true}).WriteNotice(&buf)
	if buf.String() != "\nUpdate available: 1.0.0 -> 1.1.0\nDownload: https://example.com/r\n" {
		t.Errorf("notice = %q", buf.String())
	}

	buf.Reset()
	var none *CheckResult
	none.WriteNotice(&buf)
	(&CheckResult{UpdateAvailable: false}).WriteNotice(&buf)
	if buf.Len() != 0 {
		t.Errorf("expected no notice, got %q", buf.String())
	}
}
