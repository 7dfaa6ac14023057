package ignite

import (
	"encoding/json"
	"math"

	"github.com/kemurphy3/ignite-fitness-sub001/internal/stats"
)

// P-value methods for the correlation significance test.
const (
	// PValueSimpson integrates the Student-t density with Simpson's rule,
	// normalised with a Lanczos gamma approximation.
	PValueSimpson = "simpson"
	// PValueExact uses the closed-form Student-t CDF.
	PValueExact = "exact"
)

// CorrelationConfig configures the significance test.
type CorrelationConfig struct {
	// PValueMethod is PValueSimpson (default) or PValueExact.
	PValueMethod string `yaml:"p_value_method"`
	// Intervals is the number of Simpson panels. Default: 1000.
	Intervals int `yaml:"intervals"`
	// Alpha is the significance level. Default: 0.05.
	Alpha float64 `yaml:"alpha"`
}

// DefaultCorrelationConfig returns default correlation configuration.
func DefaultCorrelationConfig() CorrelationConfig {
	return CorrelationConfig{
		PValueMethod: PValueSimpson,
		Intervals:    stats.DefaultSimpsonIntervals,
		Alpha:        0.05,
	}
}

func normalizeCorrelationConfig(c CorrelationConfig) CorrelationConfig {
	if c.PValueMethod == "" {
		c.PValueMethod = PValueSimpson
	}
	if c.Intervals <= 0 {
		c.Intervals = stats.DefaultSimpsonIntervals
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		c.Alpha = 0.05
	}
	return c
}

// CorrelationResult is a Pearson coefficient with its two-tailed test.
type CorrelationResult struct {
	XKey        string  `json:"xKey"`
	YKey        string  `json:"yKey"`
	Correlation float64 `json:"correlation"`
	TStatistic  float64 `json:"tStatistic"`
	PValue      float64 `json:"pValue"`
	N           int     `json:"n"`
	Significant bool    `json:"significant"`
}

// CorrelationAnalysis computes the Pearson correlation between two columns
// and its significance, t = r*sqrt((n-2)/(1-r^2)) with n-2 degrees of
// freedom. Zero-variance columns give r = 0 and p = 1.
func (e *FeatureExtractor) CorrelationAnalysis(vectors []FeatureVector, xKey, yKey string) (CorrelationResult, error) {
	if _, err := e.prepare(vectors, []string{xKey, yKey}); err != nil {
		return CorrelationResult{}, err
	}

	xs := column(vectors, xKey)
	ys := column(vectors, yKey)
	n := len(xs)
	r := stats.Pearson(xs, ys)

	result := CorrelationResult{
		XKey:        xKey,
		YKey:        yKey,
		Correlation: r,
		PValue:      1,
		N:           n,
	}
	if n < 3 || r == 0 {
		return result, nil
	}

	df := float64(n - 2)
	if math.Abs(r) >= 1 {
		result.TStatistic = math.Copysign(math.Inf(1), r)
		result.PValue = 0
	} else {
		result.TStatistic = r * math.Sqrt(df/(1-r*r))
		result.PValue = e.pValue(result.TStatistic, df)
	}
	result.Significant = result.PValue < e.correlation.Alpha

	e.logger.Debug("correlation computed", "x", xKey, "y", yKey, "r", r, "p", result.PValue)
	return result, nil
}

func (e *FeatureExtractor) pValue(t, df float64) float64 {
	if e.correlation.PValueMethod == PValueExact {
		return stats.TwoTailedPExact(t, df)
	}
	return stats.TwoTailedPSimpson(t, df, e.correlation.Intervals)
}

// MarshalJSON encodes an infinite t statistic as a string, which
// encoding/json cannot represent as a number.
func (r CorrelationResult) MarshalJSON() ([]byte, error) {
	type alias CorrelationResult
	return json.Marshal(struct {
		alias
		TStatistic any `json:"tStatistic"`
	}{alias: alias(r), TStatistic: jsonFloat(r.TStatistic)})
}

// jsonFloat maps non-finite values to the strings JavaScript clients expect.
func jsonFloat(v float64) any {
	switch {
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case math.IsNaN(v):
		return nil
	}
	return v
}
