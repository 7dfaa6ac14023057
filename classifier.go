package ignite

import (
	"math"
	"time"
)

// ClassifierConfig configures clustering and supervised models.
type ClassifierConfig struct {
	// Clusters is k for k-means. Default: 3.
	Clusters int `yaml:"clusters"`

	// MaxIterations bounds Lloyd's algorithm. Default: 100.
	MaxIterations int `yaml:"max_iterations"`

	// LearningRate is the gradient descent step. Default: 0.1.
	LearningRate float64 `yaml:"learning_rate"`

	// Iterations is the default logistic regression budget. Default: 1000.
	Iterations int `yaml:"iterations"`

	// ThresholdSteps is the number of candidate thresholds per feature
	// when splitting a tree node. Default: 10.
	ThresholdSteps int `yaml:"threshold_steps"`

	// Trees is the default forest size. Default: 10.
	Trees int `yaml:"trees"`

	// MaxDepth is used when a negative depth is requested. Default: 4.
	MaxDepth int `yaml:"max_depth"`

	// Seed feeds the default random source. 0 uses the current time.
	Seed int64 `yaml:"seed"`
}

// DefaultClassifierConfig returns default classifier configuration.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		Clusters:       3,
		MaxIterations:  100,
		LearningRate:   0.1,
		Iterations:     1000,
		ThresholdSteps: 10,
		Trees:          10,
		MaxDepth:       4,
	}
}

// AdaptationClassifier groups and labels training responses.
type AdaptationClassifier struct {
	config ClassifierConfig
	rng    RandomSource
	trend  *TrendAnalyzer
	logger Logger
}

// NewAdaptationClassifier creates a classifier drawing randomness from rng.
// A nil rng is seeded from config.Seed.
func NewAdaptationClassifier(config ClassifierConfig, rng RandomSource, trend *TrendAnalyzer, logger Logger) *AdaptationClassifier {
	def := DefaultClassifierConfig()
	if config.Clusters <= 0 {
		config.Clusters = def.Clusters
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = def.MaxIterations
	}
	if config.LearningRate <= 0 {
		config.LearningRate = def.LearningRate
	}
	if config.Iterations <= 0 {
		config.Iterations = def.Iterations
	}
	if config.ThresholdSteps <= 0 {
		config.ThresholdSteps = def.ThresholdSteps
	}
	if config.Trees <= 0 {
		config.Trees = def.Trees
	}
	if config.MaxDepth <= 0 {
		config.MaxDepth = def.MaxDepth
	}
	if rng == nil {
		seed := config.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = NewRandomSource(seed)
	}
	if trend == nil {
		trend = NewTrendAnalyzer(DefaultTrendConfig(), logger)
	}
	return &AdaptationClassifier{
		config: config,
		rng:    &lockedSource{src: rng},
		trend:  trend,
		logger: loggerOrNop(logger),
	}
}

// Response feature names produced by ResponseFeatures.
const (
	FeatureSlope         = "slope"
	FeatureR2            = "r2"
	FeatureVolatility    = "volatility"
	FeaturePercentChange = "percent_change"
	FeatureSpanDays      = "span_days"
)

// ResponseFeatures summarises how one series responded to training, as a
// vector suitable for RunKMeans or the supervised models.
func (c *AdaptationClassifier) ResponseFeatures(series Series) FeatureVector {
	s := series.Sorted()
	summary := c.trend.Summarize(s)
	return FeatureVector{
		FeatureSlope:         summary.Regression.Slope,
		FeatureR2:            summary.Regression.R2,
		FeatureVolatility:    summary.Volatility,
		FeaturePercentChange: summary.PercentChange,
		FeatureSpanDays:      s.SpanDays(),
	}
}

// matrix extracts keys from every vector, failing on the first missing or
// non-finite value.
func matrix(dataset []FeatureVector, keys []string) ([][]float64, error) {
	if len(dataset) == 0 {
		return nil, errEmptySeries()
	}
	if len(keys) == 0 {
		return nil, errOutOfRange("keys", "at least one feature key required")
	}
	rows := make([][]float64, len(dataset))
	for i, fv := range dataset {
		row := make([]float64, len(keys))
		for j, k := range keys {
			v, ok := fv[k]
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errMissingValue(k)
			}
			row[j] = v
		}
		rows[i] = row
	}
	return rows, nil
}

func labels(dataset []FeatureVector, labelKey string) ([]float64, error) {
	out := make([]float64, len(dataset))
	for i, fv := range dataset {
		v, ok := fv[labelKey]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errMissingValue(labelKey)
		}
		out[i] = v
	}
	return out, nil
}

// majority returns the most frequent label. Ties go to the label seen first
// in the input order, so the result never depends on map iteration.
func majority(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	counts := make(map[float64]int, 4)
	order := make([]float64, 0, 4)
	for _, v := range values {
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}
	best := order[0]
	for _, v := range order[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
