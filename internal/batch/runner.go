package batch

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/restclient/restclient/internal/api"
)

// DefaultConcurrency is the default number of concurrent workers
const DefaultConcurrency = 5

// RunIDHeader tags every request of one run.
const RunIDHeader = "X-Batch-Id"

// Runner executes plans through a Dispatcher.
type Runner struct {
	Dispatcher api.Dispatcher
	BaseURL    string
	Token      string
	Auth       *api.AuthHeaderSettings
	// Concurrency and Rate override the plan values when positive.
	Concurrency int
	Rate        float64
	// OnResult, when set, is called as each step completes. It may be called
	// concurrently.
	OnResult func(Outcome)
}

// Outcome is the result of one step.
type Outcome struct {
	Index  int
	Step   Step
	Result *api.Result
}

// Report collects the outcomes of a run in plan order.
type Report struct {
	RunID    string
	Outcomes []Outcome
	// Skipped counts steps not started because ctx was cancelled.
	Skipped int
}

// Failed returns the number of steps whose result is an error.
func (r *Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Result != nil && o.Result.IsError() {
			n++
		}
	}
	return n
}

// Run executes every step of p with bounded parallelism and optional pacing.
// Individual request failures are reported in the outcomes, never as an error.
func (r *Runner) Run(ctx context.Context, p *Plan) *Report {
	concurrency := int64(firstPositive(r.Concurrency, p.Concurrency, DefaultConcurrency))
	limiter := newLimiter(firstPositiveFloat(r.Rate, p.Rate))
	report := &Report{
		RunID:    uuid.NewString(),
		Outcomes: make([]Outcome, len(p.Requests)),
	}

	var skipped atomic.Int64
	if concurrency == 1 {
		// Steps run inline, in plan order.
		for i, step := range p.Requests {
			if err := limiter.Wait(ctx); err != nil {
				skipped.Add(int64(len(p.Requests) - i))
				break
			}
			r.dispatch(ctx, report, i, step)
		}
	} else {
		sem := semaphore.NewWeighted(concurrency)
		g, gctx := errgroup.WithContext(ctx)
		for i, step := range p.Requests {
			i, step := i, step
			g.Go(func() error {
				if err := sem.Acquire(gctx, 1); err != nil {
					skipped.Add(1)
					return nil
				}
				defer sem.Release(1)

				if err := limiter.Wait(gctx); err != nil {
					skipped.Add(1)
					return nil
				}
				r.dispatch(gctx, report, i, step)
				return nil
			})
		}
		_ = g.Wait()
	}

	report.Skipped = int(skipped.Load())
	if report.Skipped > 0 {
		slog.Warn("batch interrupted", "run_id", report.RunID, "skipped", report.Skipped)
		kept := report.Outcomes[:0]
		for _, o := range report.Outcomes {
			if o.Result != nil {
				kept = append(kept, o)
			}
		}
		report.Outcomes = kept
	}
	return report
}

func (r *Runner) dispatch(ctx context.Context, report *Report, i int, step Step) {
	res := r.Dispatcher.Do(ctx, step.Method, r.request(report.RunID, step))
	out := Outcome{Index: i, Step: step, Result: res}
	report.Outcomes[i] = out
	if r.OnResult != nil {
		r.OnResult(out)
	}
}

func (r *Runner) request(runID string, s Step) api.Request {
	headers := make(map[string]string, len(s.Headers)+1)
	headers[RunIDHeader] = runID
	for k, v := range s.Headers {
		headers[k] = v
	}
	return api.Request{
		URL:     api.ResolveURL(r.BaseURL, s.Path),
		Query:   s.Query,
		Token:   r.Token,
		Auth:    r.Auth,
		Headers: headers,
		Body:    s.Body,
	}
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstPositiveFloat(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
