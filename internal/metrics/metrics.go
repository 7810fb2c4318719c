// Package metrics exposes request activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"

	"github.com/restclient/restclient/internal/api"
)

const namespace = "restclient"

// Outcome label values.
const (
	OutcomeSuccess      = "success"
	OutcomeHTTPError    = "http_error"
	OutcomeNetworkError = "network_error"
)

// Metrics records results on a private registry. It implements api.Observer.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	registry *prometheus.Registry
}

// Compile-time interface implementation check
var _ api.Observer = (*Metrics)(nil)

// New creates the collectors. In-flight gauges read counters at scrape time.
func New(counters *api.RequestCounters) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total requests by method, outcome and status code",
			},
			[]string{"method", "outcome", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "response_size_bytes",
				Help:      "Response body size in bytes",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
			},
			[]string{"method"},
		),
		registry: reg,
	}

	if counters != nil {
		for _, verb := range api.Verbs {
			verb := verb
			factory.NewGaugeFunc(
				prometheus.GaugeOpts{
					Namespace:   namespace,
					Name:        "requests_in_flight",
					Help:        "Requests currently in flight",
					ConstLabels: prometheus.Labels{"method": verb},
				},
				func() float64 { return float64(counters.Count(verb)) },
			)
		}
	}
	return m
}

// ObserveResult records one finished request.
func (m *Metrics) ObserveResult(r *api.Result) {
	m.RequestsTotal.WithLabelValues(r.Method, outcome(r), strconv.Itoa(r.ResponseCode)).Inc()
	m.RequestDuration.WithLabelValues(r.Method).Observe(r.Duration.Seconds())
	if !r.IsNetworkError {
		m.ResponseSize.WithLabelValues(r.Method).Observe(float64(len(r.StringContent)))
	}
}

func outcome(r *api.Result) string {
	switch {
	case r.IsNetworkError:
		return OutcomeNetworkError
	case r.IsHTTPError:
		return OutcomeHTTPError
	default:
		return OutcomeSuccess
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteText writes every gathered family in the text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	slog.Debug("metrics endpoint listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
