package ignite

// ProjectionConfig configures forward extrapolation.
type ProjectionConfig struct {
	// Steps is the default number of projected points.
	Steps int `yaml:"steps"`

	// IntervalDays is the default spacing between projected points.
	IntervalDays float64 `yaml:"interval_days"`

	// Z is the band multiplier applied to the regression standard error.
	// Default: 1.96 (95% normal approximation).
	Z float64 `yaml:"z"`
}

// DefaultProjectionConfig returns default projection configuration.
func DefaultProjectionConfig() ProjectionConfig {
	return ProjectionConfig{
		Steps:        4,
		IntervalDays: 7,
		Z:            1.96,
	}
}

// Projection is a baseline forecast with a symmetric confidence band.
type Projection struct {
	Baseline   Series           `json:"baseline"`
	Upper      Series           `json:"upper"`
	Lower      Series           `json:"lower"`
	Regression RegressionResult `json:"regression"`
}

// ProgressProjector extrapolates a series along its least squares line.
type ProgressProjector struct {
	config ProjectionConfig
	trend  *TrendAnalyzer
	logger Logger
}

// NewProgressProjector creates a new projector.
func NewProgressProjector(config ProjectionConfig, trend *TrendAnalyzer, logger Logger) *ProgressProjector {
	if config.Steps <= 0 {
		config.Steps = 4
	}
	if config.IntervalDays <= 0 {
		config.IntervalDays = 7
	}
	if config.Z <= 0 {
		config.Z = 1.96
	}
	if trend == nil {
		trend = NewTrendAnalyzer(DefaultTrendConfig(), logger)
	}
	return &ProgressProjector{config: config, trend: trend, logger: loggerOrNop(logger)}
}

// Project fits the whole series (x in days since the first point) and
// returns steps points spaced intervalDays apart after the last observation.
// Non-positive steps or intervalDays fall back to the configured defaults.
// With fewer than two points the input is echoed with a zero regression.
func (p *ProgressProjector) Project(series Series, steps int, intervalDays float64) Projection {
	s := series.Sorted()
	if len(s) < 2 {
		return Projection{
			Baseline: append(Series{}, s...),
			Upper:    append(Series{}, s...),
			Lower:    append(Series{}, s...),
		}
	}
	if steps <= 0 {
		steps = p.config.Steps
	}
	if intervalDays <= 0 {
		intervalDays = p.config.IntervalDays
	}

	xy := SeriesToXY(s)
	reg := p.trend.LinearRegression(xy)
	band := p.config.Z * reg.StandardError

	last := s[len(s)-1]
	lastX := xy[len(xy)-1].X
	proj := Projection{
		Baseline:   make(Series, steps),
		Upper:      make(Series, steps),
		Lower:      make(Series, steps),
		Regression: reg,
	}
	for i := 1; i <= steps; i++ {
		offset := float64(i) * intervalDays
		ts := last.Timestamp + int64(offset*msPerDay)
		v := reg.Predict(lastX + offset)
		proj.Baseline[i-1] = TimeSeriesPoint{Timestamp: ts, Value: v}
		proj.Upper[i-1] = TimeSeriesPoint{Timestamp: ts, Value: v + band}
		proj.Lower[i-1] = TimeSeriesPoint{Timestamp: ts, Value: v - band}
	}

	p.logger.Debug("series projected", "points", len(s), "steps", steps, "slope", reg.Slope, "band", band)
	return proj
}
