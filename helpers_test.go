package ignite

import (
	"github.com/kemurphy3/ignite-fitness-sub001/internal/testutil"
)

// seriesOf builds a series from values spaced stepDays apart.
func seriesOf(stepDays float64, values ...float64) Series {
	stamps := testutil.Stamps(len(values), stepDays)
	s := make(Series, len(values))
	for i, v := range values {
		s[i] = TimeSeriesPoint{Timestamp: stamps[i], Value: v}
	}
	return s
}

func xyOf(pairs ...float64) []XY {
	out := make([]XY, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, XY{X: pairs[i], Y: pairs[i+1]})
	}
	return out
}

func newTestAnalyzer(opts ...AnalyzerOption) *Analyzer {
	cfg := DefaultConfig()
	cfg.Classifier.Seed = 42
	return NewAnalyzer(cfg, append([]AnalyzerOption{WithRandomSource(NewRandomSource(42))}, opts...)...)
}
