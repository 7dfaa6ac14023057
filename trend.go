package ignite

import (
	"math"

	"github.com/kemurphy3/ignite-fitness-sub001/internal/stats"
)

// TrendConfig configures the trend analyzer.
type TrendConfig struct {
	// SmoothingAlpha is the EMA factor used by Summarize (0-1].
	SmoothingAlpha float64 `yaml:"smoothing_alpha"`

	// StableThreshold is the relative change over the series span below
	// which a trend is reported as stable.
	StableThreshold float64 `yaml:"stable_threshold"`
}

// DefaultTrendConfig returns default trend configuration.
func DefaultTrendConfig() TrendConfig {
	return TrendConfig{
		SmoothingAlpha:  0.3,
		StableThreshold: 0.02,
	}
}

// RegressionResult holds an ordinary least squares fit.
type RegressionResult struct {
	Slope         float64 `json:"slope"`
	Intercept     float64 `json:"intercept"`
	R2            float64 `json:"r2"`
	StandardError float64 `json:"standardError"`
	N             int     `json:"n"`
}

// Predict evaluates the fitted line at x.
func (r RegressionResult) Predict(x float64) float64 {
	return r.Intercept + r.Slope*x
}

// TrendDirection classifies the sign of a trend.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// TrendSummary describes direction and strength of a series.
type TrendSummary struct {
	Direction     TrendDirection   `json:"direction"`
	Strength      float64          `json:"strength"`
	PercentChange float64          `json:"percentChange"`
	Volatility    float64          `json:"volatility"`
	Smoothed      float64          `json:"smoothed"`
	Regression    RegressionResult `json:"regression"`
	Points        int              `json:"points"`
}

// TrendAnalyzer implements the regression and smoothing primitives the other
// components build on.
type TrendAnalyzer struct {
	config TrendConfig
	logger Logger
}

// NewTrendAnalyzer creates a new trend analyzer.
func NewTrendAnalyzer(config TrendConfig, logger Logger) *TrendAnalyzer {
	if config.SmoothingAlpha <= 0 || config.SmoothingAlpha > 1 {
		config.SmoothingAlpha = 0.3
	}
	if config.StableThreshold <= 0 {
		config.StableThreshold = 0.02
	}
	return &TrendAnalyzer{config: config, logger: loggerOrNop(logger)}
}

// LinearRegression fits y = intercept + slope*x by least squares.
// Fewer than two points, or a constant x, yield a zero slope; r2 is 0
// whenever y has no variance.
func (a *TrendAnalyzer) LinearRegression(points []XY) RegressionResult {
	n := len(points)
	switch n {
	case 0:
		return RegressionResult{}
	case 1:
		return RegressionResult{Intercept: points[0].Y, N: 1}
	}

	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var ssXY, ssXX, ssYY float64
	for _, p := range points {
		dx := p.X - meanX
		dy := p.Y - meanY
		ssXY += dx * dy
		ssXX += dx * dx
		ssYY += dy * dy
	}

	result := RegressionResult{Intercept: meanY, N: n}
	if ssXX > 0 {
		result.Slope = ssXY / ssXX
		result.Intercept = meanY - result.Slope*meanX
	}

	var ssRes float64
	for _, p := range points {
		d := p.Y - result.Predict(p.X)
		ssRes += d * d
	}
	if ssYY > 0 {
		result.R2 = math.Max(0, math.Min(1, 1-ssRes/ssYY))
	}
	if n > 2 {
		result.StandardError = math.Sqrt(ssRes / float64(n-2))
	}
	return result
}

// ExponentialMovingAverage smooths values with factor alpha in (0, 1].
func (a *TrendAnalyzer) ExponentialMovingAverage(values []float64, alpha float64) ([]float64, error) {
	if math.IsNaN(alpha) || alpha <= 0 || alpha > 1 {
		return nil, newValidationError(ValidationErrorTypeAlpha, ErrInvalidAlpha.Error(), "alpha", nil)
	}
	ema := make([]float64, len(values))
	for i, v := range values {
		if i == 0 {
			ema[0] = v
			continue
		}
		ema[i] = alpha*v + (1-alpha)*ema[i-1]
	}
	return ema, nil
}

// RollingSlopes returns the regression slope of every window of windowSize
// consecutive points. Windows smaller than two are widened to two.
func (a *TrendAnalyzer) RollingSlopes(points []XY, windowSize int) []float64 {
	if windowSize < 2 {
		windowSize = 2
	}
	if len(points) < windowSize {
		return nil
	}
	slopes := make([]float64, 0, len(points)-windowSize+1)
	for i := 0; i+windowSize <= len(points); i++ {
		slopes = append(slopes, a.LinearRegression(points[i:i+windowSize]).Slope)
	}
	return slopes
}

// CoefficientOfVariation returns the population standard deviation divided
// by the absolute mean, or 0 when the mean is 0.
func (a *TrendAnalyzer) CoefficientOfVariation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := stats.Mean(values)
	if mean == 0 {
		return 0
	}
	return stats.PopStdDev(values) / math.Abs(mean)
}

// Summarize reports direction, strength and volatility of a series.
func (a *TrendAnalyzer) Summarize(series Series) TrendSummary {
	s := series.Sorted()
	summary := TrendSummary{Direction: TrendStable, Points: len(s)}
	if len(s) == 0 {
		return summary
	}

	values := s.Values()
	xy := SeriesToXY(s)
	reg := a.LinearRegression(xy)
	summary.Regression = reg
	summary.Strength = stats.Round(reg.R2, 4)
	summary.Volatility = a.CoefficientOfVariation(values)

	if ema, err := a.ExponentialMovingAverage(values, a.config.SmoothingAlpha); err == nil {
		summary.Smoothed = ema[len(ema)-1]
	}

	first, last := values[0], values[len(values)-1]
	if first != 0 {
		summary.PercentChange = (last - first) / math.Abs(first) * 100
	}

	span := xy[len(xy)-1].X
	mean := stats.Mean(values)
	change := reg.Slope * span
	relative := change
	if mean != 0 {
		relative = change / math.Abs(mean)
	}
	switch {
	case math.Abs(relative) < a.config.StableThreshold:
		summary.Direction = TrendStable
	case reg.Slope > 0:
		summary.Direction = TrendIncreasing
	default:
		summary.Direction = TrendDecreasing
	}

	a.logger.Debug("trend summarized", "points", len(s), "slope", reg.Slope, "r2", reg.R2, "direction", summary.Direction)
	return summary
}
