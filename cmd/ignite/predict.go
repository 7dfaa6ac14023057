package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	ignite "github.com/kemurphy3/ignite-fitness-sub001"
)

func newPredictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Closed-form performance predictions",
	}
	cmd.AddCommand(newPredictGoalCmd(), newPredict5kCmd(), newPredictStrengthCmd(), newPredictWeightCmd())
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newPredictGoalCmd() *cobra.Command {
	var current, target, rate float64
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Weeks and days to reach a target at a steady weekly rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tl := ignite.NewPerformancePredictor().EstimateGoalTimeline(current, target, rate)
			return printJSON(cmd, tl)
		},
	}
	cmd.Flags().Float64Var(&current, "current", 0, "current value")
	cmd.Flags().Float64Var(&target, "target", 0, "target value")
	cmd.Flags().Float64Var(&rate, "weekly-rate", 0, "change per week")
	_ = cmd.MarkFlagRequired("current")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("weekly-rate")
	return cmd
}

func newPredict5kCmd() *cobra.Command {
	var current, rate, weeks float64
	cmd := &cobra.Command{
		Use:   "5k",
		Short: "Projected 5k time after compounding weekly improvement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd, map[string]float64{
				"prediction": ignite.NewPerformancePredictor().Predict5kTime(current, rate, weeks),
			})
		},
	}
	cmd.Flags().Float64Var(&current, "current-time", 0, "current 5k time")
	cmd.Flags().Float64Var(&rate, "weekly-improvement", 0.01, "weekly fractional improvement, clamped to [0, 0.2]")
	cmd.Flags().Float64Var(&weeks, "weeks", 0, "training weeks")
	_ = cmd.MarkFlagRequired("current-time")
	return cmd
}

func newPredictStrengthCmd() *cobra.Command {
	var current, load, recovery, rate float64
	cmd := &cobra.Command{
		Use:   "strength",
		Short: "Projected one-rep max from volume load and recovery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd, map[string]float64{
				"prediction": ignite.NewPerformancePredictor().PredictStrengthMax(current, load, recovery, rate),
			})
		},
	}
	cmd.Flags().Float64Var(&current, "current-max", 0, "current max")
	cmd.Flags().Float64Var(&load, "volume-load", 0, "training volume load")
	cmd.Flags().Float64Var(&recovery, "recovery", 1, "recovery factor, clamped to [0.5, 1.5]")
	cmd.Flags().Float64Var(&rate, "progression-rate", 0.01, "progression rate")
	_ = cmd.MarkFlagRequired("current-max")
	return cmd
}

func newPredictWeightCmd() *cobra.Command {
	var current, change, weeks float64
	cmd := &cobra.Command{
		Use:   "weight",
		Short: "Linear body weight extrapolation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd, map[string]float64{
				"prediction": ignite.NewPerformancePredictor().PredictWeightChange(current, change, weeks),
			})
		},
	}
	cmd.Flags().Float64Var(&current, "current-weight", 0, "current body weight")
	cmd.Flags().Float64Var(&change, "weekly-change", 0, "change per week")
	cmd.Flags().Float64Var(&weeks, "weeks", 0, "weeks ahead")
	_ = cmd.MarkFlagRequired("current-weight")
	return cmd
}
