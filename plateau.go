package ignite

import (
	"fmt"
	"math"

	"github.com/kemurphy3/ignite-fitness-sub001/internal/stats"
)

// PlateauConfig configures the stagnation detector. The defaults reproduce
// the coaching heuristic: slope collapse (0.4), change point (0.3) and a flat
// long tail (0.2), with a plateau at 0.6.
type PlateauConfig struct {
	// MinPoints is the sample count below which detection is skipped.
	MinPoints int `yaml:"min_points"`

	// RecentFraction is the trailing share of the series treated as "recent".
	RecentFraction float64 `yaml:"recent_fraction"`

	// CollapseRatio is the recent/historical slope ratio under which
	// progress is considered stalled.
	CollapseRatio float64 `yaml:"collapse_ratio"`

	// RollingWindow is the window for rolling slopes.
	RollingWindow int `yaml:"rolling_window"`

	// ChangePointSigma is the number of rolling-slope standard deviations
	// that mark a change point.
	ChangePointSigma float64 `yaml:"change_point_sigma"`

	// FlatWindow is the number of trailing points checked for flatness.
	FlatWindow int `yaml:"flat_window"`

	// FlatCV is the coefficient of variation below which the tail is flat.
	FlatCV float64 `yaml:"flat_cv"`

	// MinSpanDays is the series span required before flatness counts.
	MinSpanDays float64 `yaml:"min_span_days"`

	SlopeWeight       float64 `yaml:"slope_weight"`
	ChangePointWeight float64 `yaml:"change_point_weight"`
	FlatWeight        float64 `yaml:"flat_weight"`

	// PlateauThreshold is the score at which a plateau is declared.
	PlateauThreshold float64 `yaml:"plateau_threshold"`

	// ChangePointThreshold is the score at which the change point flag is set.
	ChangePointThreshold float64 `yaml:"change_point_threshold"`
}

// DefaultPlateauConfig returns default plateau configuration.
func DefaultPlateauConfig() PlateauConfig {
	return PlateauConfig{
		MinPoints:            5,
		RecentFraction:       0.3,
		CollapseRatio:        0.1,
		RollingWindow:        4,
		ChangePointSigma:     2,
		FlatWindow:           4,
		FlatCV:               0.05,
		MinSpanDays:          14,
		SlopeWeight:          0.4,
		ChangePointWeight:    0.3,
		FlatWeight:           0.2,
		PlateauThreshold:     0.6,
		ChangePointThreshold: 0.4,
	}
}

// PlateauResult explains whether progress has stalled.
type PlateauResult struct {
	Plateau         bool     `json:"plateau"`
	Confidence      float64  `json:"confidence"`
	Reasons         []string `json:"reasons"`
	Recommendations []string `json:"recommendations"`
	ChangePoint     bool     `json:"changePoint"`
}

// PlateauDetector scores a single series for stagnation.
type PlateauDetector struct {
	config PlateauConfig
	trend  *TrendAnalyzer
	logger Logger
}

// NewPlateauDetector creates a new plateau detector.
func NewPlateauDetector(config PlateauConfig, trend *TrendAnalyzer, logger Logger) *PlateauDetector {
	def := DefaultPlateauConfig()
	if config.MinPoints <= 0 {
		config.MinPoints = def.MinPoints
	}
	if config.RecentFraction <= 0 || config.RecentFraction >= 1 {
		config.RecentFraction = def.RecentFraction
	}
	if config.CollapseRatio <= 0 {
		config.CollapseRatio = def.CollapseRatio
	}
	if config.RollingWindow < 2 {
		config.RollingWindow = def.RollingWindow
	}
	if config.ChangePointSigma <= 0 {
		config.ChangePointSigma = def.ChangePointSigma
	}
	if config.FlatWindow < 2 {
		config.FlatWindow = def.FlatWindow
	}
	if config.FlatCV <= 0 {
		config.FlatCV = def.FlatCV
	}
	if config.MinSpanDays < 0 {
		config.MinSpanDays = def.MinSpanDays
	}
	if config.SlopeWeight <= 0 && config.ChangePointWeight <= 0 && config.FlatWeight <= 0 {
		config.SlopeWeight = def.SlopeWeight
		config.ChangePointWeight = def.ChangePointWeight
		config.FlatWeight = def.FlatWeight
	}
	if config.PlateauThreshold <= 0 {
		config.PlateauThreshold = def.PlateauThreshold
	}
	if config.ChangePointThreshold <= 0 {
		config.ChangePointThreshold = def.ChangePointThreshold
	}
	if trend == nil {
		trend = NewTrendAnalyzer(DefaultTrendConfig(), logger)
	}
	return &PlateauDetector{config: config, trend: trend, logger: loggerOrNop(logger)}
}

// Detect runs the three signals over the series. Short series return an
// "Insufficient data" result instead of an error.
func (d *PlateauDetector) Detect(series Series) PlateauResult {
	s := series.Sorted()
	if len(s) < d.config.MinPoints {
		return PlateauResult{
			Reasons:         []string{"Insufficient data"},
			Recommendations: []string{},
		}
	}

	xy := SeriesToXY(s)
	result := PlateauResult{Reasons: []string{}, Recommendations: []string{}}
	score := 0.0

	split := int(math.Floor(float64(len(xy)) * (1 - d.config.RecentFraction)))
	if split < 2 {
		split = 2
	}
	if split > len(xy)-2 {
		split = len(xy) - 2
	}
	historical := d.trend.LinearRegression(xy[:split])
	recent := d.trend.LinearRegression(xy[split:])

	if historical.Slope > 0 && recent.Slope < historical.Slope*d.config.CollapseRatio {
		score += d.config.SlopeWeight
		result.Reasons = append(result.Reasons, fmt.Sprintf(
			"Recent progress rate (%.2f/day) has dropped below %.0f%% of the historical rate (%.2f/day)",
			recent.Slope, d.config.CollapseRatio*100, historical.Slope))
		result.Recommendations = append(result.Recommendations,
			"Vary the training stimulus: change rep ranges, exercise selection or intensity")
	}

	slopes := d.trend.RollingSlopes(xy, d.config.RollingWindow)
	if len(slopes) >= 2 {
		sd := stats.StdDev(slopes)
		latest := slopes[len(slopes)-1]
		if sd > 0 && math.Abs(latest-historical.Slope) > d.config.ChangePointSigma*sd {
			score += d.config.ChangePointWeight
			result.Reasons = append(result.Reasons, fmt.Sprintf(
				"Trend shifted abruptly: latest rolling slope %.2f vs historical %.2f", latest, historical.Slope))
			result.Recommendations = append(result.Recommendations,
				"Review recent recovery, sleep and nutrition for a change that coincides with the shift")
		}
	}

	tail := s.Values()
	if len(tail) > d.config.FlatWindow {
		tail = tail[len(tail)-d.config.FlatWindow:]
	}
	cv := d.trend.CoefficientOfVariation(tail)
	if cv < d.config.FlatCV && s.SpanDays() > d.config.MinSpanDays {
		score += d.config.FlatWeight
		result.Reasons = append(result.Reasons, fmt.Sprintf(
			"Last %d measurements vary by only %.1f%%", len(tail), cv*100))
		result.Recommendations = append(result.Recommendations,
			"Plan a deload week followed by a progressive overload block")
	}

	result.Confidence = stats.Round(math.Min(score, 1), 2)
	result.Plateau = score >= d.config.PlateauThreshold-1e-9
	result.ChangePoint = score >= d.config.ChangePointThreshold-1e-9

	d.logger.Debug("plateau evaluated", "points", len(s), "score", score, "plateau", result.Plateau)
	return result
}
