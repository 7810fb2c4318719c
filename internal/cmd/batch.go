package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/restclient/restclient/internal/api"
	"github.com/restclient/restclient/internal/batch"
	"github.com/restclient/restclient/internal/iocontext"
	"github.com/restclient/restclient/internal/metrics"
	"github.com/restclient/restclient/internal/validation"
)

type batchStepPayload struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	requestPayload
}

type batchPayload struct {
	RunID    string             `json:"run_id"`
	Total    int                `json:"total"`
	Failed   int                `json:"failed"`
	Skipped  int                `json:"skipped"`
	Requests []batchStepPayload `json:"requests"`
}

func newBatchCmd() *cobra.Command {
	var concurrency int
	var rps float64
	var printMetrics bool
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "batch <plan.yaml>",
		Short: "Run a YAML plan of requests concurrently",
		Long: `Run a YAML plan of requests concurrently.

Every request is sent through the same client as the single-request commands,
so auth, transport and codec settings apply. Requests of one run share an
X-Batch-Id header. Use - to read the plan from stdin.

Plan format:

  concurrency: 4
  rate: 10          # requests per second, 0 = unlimited
  requests:
    - name: list users
      method: GET
      path: /users
      query: {page: 2, tag: [a, b]}
    - method: POST
      path: /users
      headers: {Idempotency-Key: abc}
      body: {name: Ada}`,
		Example: `  restclient batch plan.yaml
  restclient batch plan.yaml --concurrency 10 --rate 20 --metrics
  cat plan.yaml | restclient batch - --json`,
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if concurrency < 0 {
				return fmt.Errorf("--concurrency must be >= 0")
			}
			if rps < 0 {
				return fmt.Errorf("--rate must be >= 0")
			}
			ctx := cmdContext(cmd)

			data, err := iocontext.ReadSource(ctx, args[0])
			if err != nil {
				return err
			}
			plan, err := batch.ParsePlan(data)
			if err != nil {
				return err
			}

			factory := newClientFactory()
			settings, err := factory.settings()
			if err != nil {
				return err
			}
			for i, step := range plan.Requests {
				if !api.IsAbsoluteURL(step.Path) && settings.BaseURL == "" {
					return fmt.Errorf("request %d (%s): %w", i+1, step.Label(), errNoBaseURL)
				}
				if err := validation.ValidateRequestURL(api.ResolveURL(settings.BaseURL, step.Path)); err != nil {
					return fmt.Errorf("request %d (%s): %w", i+1, step.Label(), err)
				}
			}

			var m *metrics.Metrics
			if printMetrics || metricsAddr != "" {
				m = metrics.New(api.DefaultCounters)
				factory.observer = m
			}
			client, err := factory.client(ctx, settings)
			if err != nil {
				return err
			}
			if factory.recorder != nil {
				concurrency = 1
			}

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			serveErr := make(chan error, 1)
			if metricsAddr != "" {
				go func() { serveErr <- m.Serve(runCtx, metricsAddr) }()
			}

			runner := &batch.Runner{
				Dispatcher:  client,
				BaseURL:     settings.BaseURL,
				Token:       settings.Token,
				Concurrency: concurrency,
				Rate:        rps,
				OnResult: func(o batch.Outcome) {
					slog.Debug("batch request done",
						"index", o.Index,
						"name", o.Step.Label(),
						"status", o.Result.ResponseCode,
						"in_flight", api.DefaultCounters.Total())
				},
			}
			report := runner.Run(runCtx, plan)
			if factory.recorder != nil {
				return printPreviews(cmd, factory.recorder.Previews())
			}

			if metricsAddr != "" {
				cancel()
				if err := <-serveErr; err != nil {
					slog.Warn("metrics endpoint failed", "addr", metricsAddr, "error", err)
				}
			}

			if err := printBatchReport(cmd, report, len(plan.Requests)); err != nil {
				return err
			}
			if printMetrics && !isJSON(cmd) {
				if err := m.WriteText(cmd.OutOrStdout()); err != nil {
					return err
				}
			}

			if failed := report.Failed(); failed > 0 {
				for _, o := range report.Outcomes {
					if o.Result.IsError() {
						return fmt.Errorf("%d of %d batch requests failed: %w", failed, len(plan.Requests), o.Result.Err())
					}
				}
			}
			if report.Skipped > 0 {
				return fmt.Errorf("batch interrupted: %d of %d requests not sent: %w", report.Skipped, len(plan.Requests), ctx.Err())
			}
			return nil
		}),
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "Maximum requests in flight (overrides the plan; default 5)")
	cmd.Flags().Float64Var(&rps, "rate", 0, "Maximum requests per second (overrides the plan; 0 = unlimited)")
	cmd.Flags().BoolVar(&printMetrics, "metrics", false, "Print Prometheus metrics after the run (text output)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics on this address while the batch runs (e.g. :9090)")
	flagAlias(cmd.Flags(), "concurrency", "conc")
	return cmd
}

func printBatchReport(cmd *cobra.Command, report *batch.Report, total int) error {
	if isJSON(cmd) {
		payload := batchPayload{
			RunID:    report.RunID,
			Total:    total,
			Failed:   report.Failed(),
			Skipped:  report.Skipped,
			Requests: make([]batchStepPayload, 0, len(report.Outcomes)),
		}
		for _, o := range report.Outcomes {
			payload.Requests = append(payload.Requests, batchStepPayload{
				Index:          o.Index,
				Name:           o.Step.Label(),
				requestPayload: newRequestPayload(o.Result, false),
			})
		}
		return printJSON(cmd, payload)
	}

	out := cmd.OutOrStdout()
	for _, o := range report.Outcomes {
		res := o.Result
		switch {
		case res.IsNetworkError:
			_, _ = fmt.Fprintf(out, "%3d  %-30s  ERR  %s\n", o.Index+1, o.Step.Label(), res.Error)
		case res.IsHTTPError:
			_, _ = fmt.Fprintf(out, "%3d  %-30s  %d  %s\n", o.Index+1, o.Step.Label(), res.ResponseCode, res.Message())
		default:
			_, _ = fmt.Fprintf(out, "%3d  %-30s  %d  %s\n", o.Index+1, o.Step.Label(), res.ResponseCode, res.Duration)
		}
	}
	_, _ = fmt.Fprintf(out, "\nrun %s: %d requests, %d failed", report.RunID, total, report.Failed())
	if report.Skipped > 0 {
		_, _ = fmt.Fprintf(out, ", %d skipped", report.Skipped)
	}
	_, _ = fmt.Fprintln(out)
	return nil
}
