package explore

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runner executes many scenarios concurrently. Each scenario owns its own
// network and replicas, so runs share nothing but the logger and metrics.
type Runner struct {
	// Parallelism caps concurrent scenarios. 0 means GOMAXPROCS.
	Parallelism int

	// Logger for structured logging. nil disables logging.
	Logger *zap.Logger

	// Metrics, if set, observes every result.
	Metrics *Metrics
}

// Summary aggregates a batch of results.
type Summary struct {
	Scenarios  int
	Passed     int
	Failed     int
	Violations map[ViolationType]int
}

// RunAll executes every scenario and returns the results in input order.
// An invalid scenario or a cancelled context stops the batch.
func (r *Runner) RunAll(ctx context.Context, scenarios []Scenario) ([]Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := r.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(scenarios))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, scenario := range scenarios {
		g.Go(func() error {
			exec, err := NewExecutor(scenario, logger.With(zap.Int("scenario", i), zap.Uint64("seed", scenario.Seed)))
			if err != nil {
				return fmt.Errorf("scenario %d: %w", i, err)
			}

			result, err := exec.Execute(ctx)
			if err != nil {
				return fmt.Errorf("scenario %d: %w", i, err)
			}

			results[i] = result
			r.Metrics.Observe(result)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// Summarize aggregates results.
func Summarize(results []Result) Summary {
	s := Summary{
		Scenarios:  len(results),
		Violations: make(map[ViolationType]int),
	}
	for _, r := range results {
		if r.Success {
			s.Passed++
		} else {
			s.Failed++
		}
		for _, v := range r.Violations {
			s.Violations[v.Type]++
		}
	}
	return s
}
