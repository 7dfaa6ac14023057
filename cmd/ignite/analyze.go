package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	ignite "github.com/kemurphy3/ignite-fitness-sub001"
)

type analyzeOptions struct {
	input    string
	metric   string
	valueKey string
	steps    int
	interval float64
	features bool
	groupBy  string
	clusters int
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyse a series and print a JSON report",
		Long: `Reads measurements from a CSV file (header row with timestamp or date and
a value column) or a JSON array of records, then prints the trend summary,
plateau verdict and progress projection.

With --group-by, records are split into one series per value of that column
(for example an exercise column), analysed concurrently, and the metrics are
clustered by how they responded to training.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "input file (.csv or .json, - for JSON on stdin)")
	cmd.Flags().StringVarP(&opts.metric, "metric", "m", "", "metric name (default: input file name)")
	cmd.Flags().StringVar(&opts.valueKey, "value-key", "value", "column holding the measurement")
	cmd.Flags().IntVar(&opts.steps, "steps", 0, "projection steps (default from config)")
	cmd.Flags().Float64Var(&opts.interval, "interval-days", 0, "projection spacing in days (default from config)")
	cmd.Flags().BoolVar(&opts.features, "features", false, "also print engineered feature vectors")
	cmd.Flags().StringVar(&opts.groupBy, "group-by", "", "column naming the metric of each record; analyses every metric")
	cmd.Flags().IntVar(&opts.clusters, "clusters", 0, "response clusters for --group-by (default from config)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runAnalyze(cmd *cobra.Command, root *rootOptions, opts *analyzeOptions) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	if opts.steps > 0 {
		cfg.Projection.Steps = opts.steps
	}
	if opts.interval > 0 {
		cfg.Projection.IntervalDays = opts.interval
	}
	if opts.clusters > 0 {
		cfg.Classifier.Clusters = opts.clusters
	}
	logger, err := stderrLogger(cfg)
	if err != nil {
		return err
	}
	analyzer := ignite.NewAnalyzer(cfg, ignite.WithLogger(logger))

	records, err := readRecords(opts.input, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if opts.groupBy != "" {
		groups, err := groupRecords(records, opts.groupBy)
		if err != nil {
			return err
		}
		out, err := analyzeGroups(cmd.Context(), analyzer, groups, opts.valueKey)
		if err != nil {
			return err
		}
		return writeIndented(cmd, out)
	}
	vectors, err := analyzer.Features.ValidateSeries(records, []string{opts.valueKey})
	if err != nil {
		return err
	}

	metric := opts.metric
	if metric == "" {
		metric = strings.TrimSuffix(filepath.Base(opts.input), filepath.Ext(opts.input))
		if metric == "-" {
			metric = opts.valueKey
		}
	}
	report, err := analyzer.Analyze(metric, ignite.ToSeries(vectors, opts.valueKey))
	if err != nil {
		return err
	}

	out := map[string]any{"report": report}
	if opts.features {
		fv, err := engineer(analyzer, vectors, opts.valueKey)
		if err != nil {
			return err
		}
		out["features"] = fv
	}

	return writeIndented(cmd, out)
}

func writeIndented(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// engineer applies every feature transform to the measurement column.
func engineer(a *ignite.Analyzer, vectors []ignite.FeatureVector, key string) ([]ignite.FeatureVector, error) {
	keys := []string{key}
	fv, err := a.Features.AddRollingStatistics(vectors, keys, nil)
	if err != nil {
		return nil, err
	}
	if fv, err = a.Features.AddRateOfChange(fv, keys); err != nil {
		return nil, err
	}
	if fv, err = a.Features.AddSmoothing(fv, keys, a.Config().Trend.SmoothingAlpha); err != nil {
		return nil, err
	}
	return a.Features.AddSeasonalDecomposition(fv, key)
}
