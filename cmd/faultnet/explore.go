package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edgedlt/faultnet/explore"
)

type exploreFlags struct {
	Seed      uint64
	Scenarios int
	Parallel  int
	Config    string
	Metrics   bool
	Verbose   bool
}

func newExploreCmd() *cobra.Command {
	var flags exploreFlags

	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Run generated fault scenarios and report violations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExplore(cmd, flags)
		},
	}

	cmd.Flags().Uint64Var(&flags.Seed, "seed", 1, "Seed for scenario generation (0 = random)")
	cmd.Flags().IntVarP(&flags.Scenarios, "scenarios", "n", 100, "Number of random scenarios")
	cmd.Flags().IntVarP(&flags.Parallel, "parallel", "p", 0, "Scenarios run concurrently (0 = GOMAXPROCS)")
	cmd.Flags().StringVarP(&flags.Config, "config", "c", "", "YAML generator config")
	cmd.Flags().BoolVar(&flags.Metrics, "metrics", false, "Print metrics in Prometheus text format")
	cmd.Flags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Log every scenario")
	return cmd
}

func runExplore(cmd *cobra.Command, flags exploreFlags) error {
	if flags.Scenarios < 0 {
		return fmt.Errorf("--scenarios must be >= 0, got %d", flags.Scenarios)
	}

	logger, err := newLogger(flags.Verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	var scenarios []explore.Scenario
	if flags.Config != "" {
		config, err := explore.LoadGeneratorConfig(flags.Config)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("seed") {
			config.Seed = flags.Seed
		}
		scenarios = explore.NewGenerator(config).GenerateN(flags.Scenarios)
	} else {
		scenarios = explore.GenerateComprehensive(flags.Scenarios, flags.Seed)
	}

	reg := prometheus.NewRegistry()
	runner := &explore.Runner{
		Parallelism: flags.Parallel,
		Logger:      logger,
		Metrics:     explore.NewMetrics(reg),
	}

	results, err := runner.RunAll(cmd.Context(), scenarios)
	if err != nil {
		return err
	}

	for _, r := range results {
		if r.Success {
			continue
		}
		for _, v := range r.Violations {
			logger.Error("violation",
				zap.Stringer("scenario", r.Scenario),
				zap.Stringer("type", v.Type),
				zap.Int("replica", v.Replica),
				zap.Int("round", v.Round),
				zap.String("description", v.Description))
		}
	}

	summary := explore.Summarize(results)
	out := cmd.OutOrStdout()
	printSummary(out, summary)

	if flags.Metrics {
		families, err := reg.Gather()
		if err != nil {
			return fmt.Errorf("gather metrics: %w", err)
		}
		if err := writeMetrics(out, families); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", summary.Failed, summary.Scenarios)
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config = zap.NewDevelopmentConfig()
	}
	return config.Build()
}

func printSummary(w io.Writer, s explore.Summary) {
	fmt.Fprintf(w, "scenarios: %d  passed: %d  failed: %d\n", s.Scenarios, s.Passed, s.Failed)

	types := make([]explore.ViolationType, 0, len(s.Violations))
	for t := range s.Violations {
		types = append(types, t)
	}
	slices.Sort(types)
	for _, t := range types {
		fmt.Fprintf(w, "  %-14s %d\n", t, s.Violations[t])
	}
}

func writeMetrics(w io.Writer, families []*dto.MetricFamily) error {
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
