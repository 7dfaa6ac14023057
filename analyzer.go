package ignite

import (
	"time"

	"github.com/google/uuid"
)

// Report bundles the standard analyses of one metric's series.
type Report struct {
	ID          string        `json:"id"`
	Metric      string        `json:"metric"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Points      int           `json:"points"`
	Start       int64         `json:"start"`
	End         int64         `json:"end"`
	Trend       TrendSummary  `json:"trend"`
	Plateau     PlateauResult `json:"plateau"`
	Projection  Projection    `json:"projection"`
}

// Analyzer wires the engine components together. Components are exported
// so callers can reach individual operations.
type Analyzer struct {
	Trend      *TrendAnalyzer
	Features   *FeatureExtractor
	Plateau    *PlateauDetector
	Projector  *ProgressProjector
	Classifier *AdaptationClassifier
	Predictor  *PerformancePredictor

	config Config
	logger Logger
	rng    RandomSource
	now    func() time.Time
}

// AnalyzerOption customises an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithLogger sets the diagnostics logger shared by all components.
func WithLogger(l Logger) AnalyzerOption {
	return func(a *Analyzer) { a.logger = l }
}

// WithRandomSource sets the generator used by the classifier.
func WithRandomSource(rng RandomSource) AnalyzerOption {
	return func(a *Analyzer) { a.rng = rng }
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) AnalyzerOption {
	return func(a *Analyzer) { a.now = now }
}

// NewAnalyzer builds every component from config.
func NewAnalyzer(config Config, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{config: config, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = loggerOrNop(a.logger)

	a.Trend = NewTrendAnalyzer(config.Trend, a.logger)
	a.Features = NewFeatureExtractor(config.Features, config.Correlation, a.Trend, a.logger)
	a.Plateau = NewPlateauDetector(config.Plateau, a.Trend, a.logger)
	a.Projector = NewProgressProjector(config.Projection, a.Trend, a.logger)
	a.Classifier = NewAdaptationClassifier(config.Classifier, a.rng, a.Trend, a.logger)
	a.Predictor = NewPerformancePredictor()
	return a
}

// Config returns the configuration the analyzer was built with.
func (a *Analyzer) Config() Config {
	return a.config
}

// Analyze produces a trend summary, plateau verdict and default projection
// for series. Only an empty series is an error.
func (a *Analyzer) Analyze(metric string, series Series) (*Report, error) {
	s := series.Sorted()
	if len(s) == 0 {
		return nil, errEmptySeries()
	}

	report := &Report{
		ID:          uuid.NewString(),
		Metric:      metric,
		GeneratedAt: a.now().UTC(),
		Points:      len(s),
		Start:       s[0].Timestamp,
		End:         s[len(s)-1].Timestamp,
		Trend:       a.Trend.Summarize(s),
		Plateau:     a.Plateau.Detect(s),
		Projection:  a.Projector.Project(s, 0, 0),
	}

	a.logger.Info("series analyzed",
		"metric", metric,
		"points", report.Points,
		"direction", report.Trend.Direction,
		"plateau", report.Plateau.Plateau,
		"confidence", report.Plateau.Confidence)
	return report, nil
}
