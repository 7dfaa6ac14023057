package ignite

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchResult holds per-metric reports and per-metric validation failures.
type BatchResult struct {
	Reports map[string]*Report
	Errors  map[string]error
}

// AnalyzeBatch analyses every series concurrently, bounded by
// Batch.Concurrency. A failing series is recorded in Errors and does not stop
// the others; only context cancellation aborts the batch.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, series map[string]Series) (*BatchResult, error) {
	limit := a.config.Batch.Concurrency
	if limit <= 0 {
		limit = 4
	}

	metrics := make([]string, 0, len(series))
	for m := range series {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	result := &BatchResult{
		Reports: make(map[string]*Report, len(series)),
		Errors:  make(map[string]error),
	}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, metric := range metrics {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			report, err := a.Analyze(metric, series[metric])
			observeAnalysis(time.Since(start), report, err)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors[metric] = err
				return nil
			}
			result.Reports[metric] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	a.logger.Info("batch analyzed", "series", len(metrics), "failed", len(result.Errors))
	return result, nil
}
