package main

import (
	"context"
	"fmt"
	"math"
	"sort"

	ignite "github.com/kemurphy3/ignite-fitness-sub001"
)

// responseKeys are the ResponseFeatures used to group metrics by how they
// responded to training.
var responseKeys = []string{
	ignite.FeatureSlope,
	ignite.FeatureR2,
	ignite.FeatureVolatility,
	ignite.FeaturePercentChange,
}

// batchOutput is the analyze --group-by document.
type batchOutput struct {
	Reports  map[string]*ignite.Report `json:"reports"`
	Errors   map[string]string         `json:"errors,omitempty"`
	Clusters map[string]int            `json:"clusters,omitempty"`
	Model    *ignite.ClusterModel      `json:"model,omitempty"`
}

// groupRecords splits records on the value of column. Records without it are
// an error so a typo in the column name does not silently merge everything.
func groupRecords(records []ignite.Record, column string) (map[string][]ignite.Record, error) {
	groups := make(map[string][]ignite.Record)
	for i, rec := range records {
		v, ok := rec[column]
		if !ok || v == nil || fmt.Sprint(v) == "" {
			return nil, fmt.Errorf("record %d: missing %q", i, column)
		}
		name := fmt.Sprint(v)
		groups[name] = append(groups[name], rec)
	}
	return groups, nil
}

// analyzeGroups runs every group through AnalyzeBatch and clusters the
// successful metrics on their response features.
func analyzeGroups(ctx context.Context, a *ignite.Analyzer, groups map[string][]ignite.Record, valueKey string) (*batchOutput, error) {
	out := &batchOutput{Errors: make(map[string]string)}
	series := make(map[string]ignite.Series, len(groups))
	for metric, recs := range groups {
		vectors, err := a.Features.ValidateSeries(recs, []string{valueKey})
		if err != nil {
			out.Errors[metric] = err.Error()
			continue
		}
		series[metric] = ignite.ToSeries(vectors, valueKey)
	}

	result, err := a.AnalyzeBatch(ctx, series)
	if err != nil {
		return nil, err
	}
	out.Reports = result.Reports
	for metric, err := range result.Errors {
		out.Errors[metric] = err.Error()
	}

	metrics := make([]string, 0, len(result.Reports))
	dataset := make([]ignite.FeatureVector, 0, len(result.Reports))
	for metric := range result.Reports {
		metrics = append(metrics, metric)
	}
	sort.Strings(metrics)
	clustered := make([]string, 0, len(metrics))
	for _, metric := range metrics {
		fv := a.Classifier.ResponseFeatures(series[metric])
		if !finite(fv, responseKeys) {
			continue
		}
		clustered = append(clustered, metric)
		dataset = append(dataset, fv)
	}
	if len(dataset) < 2 {
		return out, nil
	}

	model, err := a.Classifier.RunKMeans(dataset, responseKeys)
	if err != nil {
		return nil, fmt.Errorf("cluster responses: %w", err)
	}
	out.Model = &model
	out.Clusters = make(map[string]int, len(clustered))
	for i, metric := range clustered {
		out.Clusters[metric] = model.Assignments[i]
	}
	return out, nil
}

func finite(fv ignite.FeatureVector, keys []string) bool {
	for _, k := range keys {
		v, ok := fv[k]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
