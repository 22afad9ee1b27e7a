package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/AnatoleLucet/reactive/internal/config"
	"github.com/AnatoleLucet/reactive/internal/scenario"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Metrics bool
}

func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and print its trace",
		Long: `Run a scenario against a fresh runtime and print its trace.

If the scenario lists an expected trace, the command fails when the
actual trace differs.

Example:
  reactctl run ./scenarios/counter.yaml
  reactctl run --config reactive.toml --metrics ./scenarios/cascade.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd.OutOrStdout(), opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print scheduler metrics after the trace")

	return cmd
}

type runOutput struct {
	Scenario string             `json:"scenario"`
	Trace    []string           `json:"trace"`
	Flushes  int                `json:"flushes"`
	Final    string             `json:"final"`
	Metrics  map[string]float64 `json:"metrics,omitempty"`
}

func runScenario(out io.Writer, opts *RunOptions, path string) error {
	s, err := scenario.Load(path)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if opts.Config != "" {
		if cfg, err = config.Load(opts.Config); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	cfg.Metrics.Enabled = cfg.Metrics.Enabled || opts.Metrics

	runtimeOpts, err := cfg.Options(reg)
	if err != nil {
		return err
	}

	res, runErr := s.Run(runtimeOpts...)
	if res == nil {
		return runErr
	}

	output := runOutput{
		Scenario: s.Name,
		Trace:    res.Trace,
		Flushes:  res.Flushes,
		Final:    res.Final,
	}

	if opts.Metrics {
		families, err := reg.Gather()
		if err != nil {
			return err
		}
		output.Metrics = samples(families)
	}

	if err := writeOutput(out, opts.Format, output, sortedNames(output.Metrics)); err != nil {
		return err
	}

	return runErr
}

func writeOutput(out io.Writer, format string, output runOutput, names []string) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(output)
	}

	fmt.Fprintf(out, "scenario: %s\n", output.Scenario)
	for _, line := range output.Trace {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "final: %s\n", output.Final)
	fmt.Fprintf(out, "flushes: %d\n", output.Flushes)

	if len(names) > 0 {
		fmt.Fprintln(out, "metrics:")
		for _, name := range names {
			fmt.Fprintf(out, "  %s %s\n", name, strconv.FormatFloat(output.Metrics[name], 'g', -1, 64))
		}
	}

	return nil
}

// samples flattens counters to their value and histograms to their sample count.
func samples(families []*dto.MetricFamily) map[string]float64 {
	values := make(map[string]float64)

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				values[mf.GetName()] += m.GetCounter().GetValue()
			case dto.MetricType_HISTOGRAM:
				values[mf.GetName()+"_count"] += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}

	return values
}

func sortedNames(values map[string]float64) []string {
	return slices.Sorted(maps.Keys(values))
}
