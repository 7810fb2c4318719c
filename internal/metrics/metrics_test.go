package metrics

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restclient/restclient/internal/api"
)

func family(t *testing.T, m *Metrics, name string) *dto.MetricFamily {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestObserveResult_Outcomes(t *testing.T) {
	m := New(nil)
	m.ObserveResult(api.NewResult(api.Result{Method: "GET", ResponseCode: 200, StringContent: "{}", Duration: 10 * time.Millisecond}))
	m.ObserveResult(api.NewResult(api.Result{Method: "GET", ResponseCode: 404, IsHTTPError: true}))
	m.ObserveResult(api.NewResult(api.Result{Method: "POST", IsNetworkError: true}))

	mf := family(t, m, "restclient_requests_total")
	require.NotNil(t, mf)

	got := map[string]float64{}
	for _, metric := range mf.GetMetric() {
		key := labelValue(metric, "method") + " " + labelValue(metric, "outcome") + " " + labelValue(metric, "status")
		got[key] = metric.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{
		"GET success 200":       1,
		"GET http_error 404":    1,
		"POST network_error -1": 1,
	}, got)
}

func TestInFlightGauges_ReadCounters(t *testing.T) {
	counters := api.NewRequestCounters()
	m := New(counters)
	counters.Begin("GET")
	counters.Begin("GET")
	counters.Begin("DELETE")

	mf := family(t, m, "restclient_requests_in_flight")
	require.NotNil(t, mf)

	got := map[string]float64{}
	for _, metric := range mf.GetMetric() {
		got[labelValue(metric, "method")] = metric.GetGauge().GetValue()
	}
	assert.Equal(t, 2.0, got["GET"])
	assert.Equal(t, 1.0, got["DELETE"])
	assert.Equal(t, 0.0, got["POST"])
	assert.Len(t, got, len(api.Verbs))
}

func TestWriteText(t *testing.T) {
	m := New(api.NewRequestCounters())
	m.ObserveResult(api.NewResult(api.Result{Method: "PUT", ResponseCode: 204}))

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "# TYPE restclient_requests_total counter")
	assert.Contains(t, out, `restclient_requests_total{method="PUT",outcome="success",status="204"} 1`)
	assert.Contains(t, out, "restclient_requests_in_flight")
}

func TestHandler(t *testing.T) {
	m := New(nil)
	m.ObserveResult(api.NewResult(api.Result{Method: "GET", ResponseCode: 200}))

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "restclient_request_duration_seconds")
}
