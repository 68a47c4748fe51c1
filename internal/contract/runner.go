package contract

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjstillabower/codex-platform-contract/internal/client"
	"github.com/kjstillabower/codex-platform-contract/internal/observability"
)

// ScenarioResult is the outcome of one scenario.
type ScenarioResult struct {
	Name     string
	Passed   bool
	Err      error
	Duration time.Duration
}

// Report is the outcome of a run, one result per scenario in run order.
type Report struct {
	Results  []ScenarioResult
	Duration time.Duration
}

// Passed reports whether every scenario passed.
func (r Report) Passed() bool {
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// Failed returns the failing results.
func (r Report) Failed() []ScenarioResult {
	var out []ScenarioResult
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// WriteText writes one PASS/FAIL line per scenario and a summary line.
func (r Report) WriteText(w io.Writer) error {
	for _, res := range r.Results {
		status := "PASS"
		if !res.Passed {
			status = "FAIL"
		}
		if _, err := fmt.Fprintf(w, "%s  %-32s %s\n", status, res.Name, res.Duration.Round(time.Millisecond)); err != nil {
			return err
		}
		if res.Err != nil {
			if _, err := fmt.Fprintf(w, "      %v\n", res.Err); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(w, "%d scenarios, %d failed, %s\n", len(r.Results), len(r.Failed()), r.Duration.Round(time.Millisecond))
	return err
}

// Options configures a Runner.
type Options struct {
	Fixtures Fixtures
	// ScenarioTimeout bounds each scenario; 0 means only the caller's context applies.
	ScenarioTimeout time.Duration
}

// Runner executes scenarios sequentially against one client.
type Runner struct {
	env     *Env
	timeout time.Duration
}

// NewRunner returns a Runner. A nil logger disables logging.
func NewRunner(c *client.Client, logger *zap.Logger, opts Options) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		env: &Env{
			Client:   c,
			Logger:   logger,
			Fixtures: opts.Fixtures,
		},
		timeout: opts.ScenarioTimeout,
	}
}

// Run executes scenarios in order. A failure ends only its own scenario. Once ctx
// is done the remaining scenarios are reported failed without running.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) Report {
	start := time.Now()
	report := Report{Results: make([]ScenarioResult, 0, len(scenarios))}

	for _, s := range scenarios {
		if err := ctx.Err(); err != nil {
			report.Results = append(report.Results, ScenarioResult{
				Name: s.Name,
				Err:  fmt.Errorf("not run: %w", err),
			})
			continue
		}
		report.Results = append(report.Results, r.runOne(ctx, s))
	}

	report.Duration = time.Since(start)
	return report
}

func (r *Runner) runOne(ctx context.Context, s Scenario) ScenarioResult {
	corrID := uuid.New().String()
	ctx = client.WithCorrelationID(ctx, corrID)
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	env := *r.env
	env.Logger = r.env.Logger.With(zap.String("scenario", s.Name), zap.String("correlation_id", corrID))

	start := time.Now()
	err := s.Run(ctx, &env)
	duration := time.Since(start)

	result := ScenarioResult{Name: s.Name, Passed: err == nil, Err: err, Duration: duration}
	observability.RecordScenario(s.Name, result.Passed, duration.Seconds())
	if err != nil {
		env.Logger.Error("scenario failed",
			zap.Duration("duration", duration),
			zap.String("category", string(client.CategorizeError(err))),
			zap.Error(err))
	} else {
		env.Logger.Info("scenario passed", zap.Duration("duration", duration))
	}
	return result
}
