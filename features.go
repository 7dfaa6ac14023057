package ignite

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kemurphy3/ignite-fitness-sub001/internal/stats"
)

// FeatureConfig configures the feature extractor.
type FeatureConfig struct {
	// Windows are the default rolling window sizes, in points.
	Windows []int `yaml:"windows"`
}

// DefaultFeatureConfig returns default feature configuration.
func DefaultFeatureConfig() FeatureConfig {
	return FeatureConfig{Windows: []int{7, 14, 30}}
}

// dateLayouts are tried in order when a timestamp arrives as a string.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FeatureExtractor derives engineered columns from validated records.
// Every method returns new vectors and leaves its input untouched.
type FeatureExtractor struct {
	config      FeatureConfig
	trend       *TrendAnalyzer
	correlation CorrelationConfig
	logger      Logger
}

// NewFeatureExtractor creates a new feature extractor.
func NewFeatureExtractor(config FeatureConfig, correlation CorrelationConfig, trend *TrendAnalyzer, logger Logger) *FeatureExtractor {
	if len(config.Windows) == 0 {
		config.Windows = DefaultFeatureConfig().Windows
	}
	if trend == nil {
		trend = NewTrendAnalyzer(DefaultTrendConfig(), logger)
	}
	return &FeatureExtractor{
		config:      config,
		trend:       trend,
		correlation: normalizeCorrelationConfig(correlation),
		logger:      loggerOrNop(logger),
	}
}

// ValidateSeries normalises raw records: it resolves each record's timestamp
// from a numeric or date-string "timestamp" field (or a "date" field),
// requires every key in requiredKeys to be a finite number, and sorts the
// result by timestamp ascending.
func (e *FeatureExtractor) ValidateSeries(records []Record, requiredKeys []string) ([]FeatureVector, error) {
	if len(records) == 0 {
		return nil, errEmptySeries()
	}

	out := make([]FeatureVector, 0, len(records))
	for i, rec := range records {
		ts, ok := recordTimestamp(rec)
		if !ok {
			e.logger.Debug("record rejected", "index", i, "field", TimestampKey)
			return nil, errMissingValue(TimestampKey)
		}
		fv := FeatureVector{TimestampKey: float64(ts)}
		for k, raw := range rec {
			if k == TimestampKey || k == "date" {
				continue
			}
			if v, ok := toFloat(raw); ok {
				fv[k] = v
			}
		}
		for _, key := range requiredKeys {
			if key == TimestampKey {
				continue
			}
			v, ok := fv[key]
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
				e.logger.Debug("record rejected", "index", i, "field", key)
				return nil, errMissingValue(key)
			}
		}
		out = append(out, fv)
	}

	sortVectors(out)
	return out, nil
}

// FromSeries converts measurements into validated vectors carrying the
// measurement under valueKey.
func (e *FeatureExtractor) FromSeries(series Series, valueKey string) ([]FeatureVector, error) {
	if len(series) == 0 {
		return nil, errEmptySeries()
	}
	records := make([]Record, len(series))
	for i, p := range series {
		records[i] = Record{TimestampKey: p.Timestamp, valueKey: p.Value}
	}
	return e.ValidateSeries(records, []string{valueKey})
}

// AddRollingStatistics appends, for each key and window, the mean and sample
// standard deviation of the trailing window ending at each point. Windows are
// clipped at the series start; nothing looks ahead. A nil windows slice uses
// the configured defaults.
func (e *FeatureExtractor) AddRollingStatistics(vectors []FeatureVector, metricKeys []string, windows []int) ([]FeatureVector, error) {
	out, err := e.prepare(vectors, metricKeys)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		windows = e.config.Windows
	}

	for _, key := range metricKeys {
		values := column(out, key)
		for _, w := range windows {
			if w <= 0 {
				return nil, errOutOfRange("windows", "window sizes must be positive")
			}
			meanKey := fmt.Sprintf("%s_rolling_mean_%d", key, w)
			stdKey := fmt.Sprintf("%s_rolling_std_%d", key, w)
			for i := range out {
				start := i - w + 1
				if start < 0 {
					start = 0
				}
				window := values[start : i+1]
				out[i][meanKey] = stats.Mean(window)
				out[i][stdKey] = stats.StdDev(window)
			}
		}
	}
	return out, nil
}

// AddRateOfChange appends "<key>_rate" (change per day) and
// "<key>_acceleration" (change of rate per day). The first record gets no
// rate and the first two get no acceleration. Gaps shorter than a day are
// counted as one day.
func (e *FeatureExtractor) AddRateOfChange(vectors []FeatureVector, metricKeys []string) ([]FeatureVector, error) {
	out, err := e.prepare(vectors, metricKeys)
	if err != nil {
		return nil, err
	}

	for _, key := range metricKeys {
		rateKey := key + "_rate"
		accelKey := key + "_acceleration"
		for i := 1; i < len(out); i++ {
			days := wholeDays(out[i].Timestamp() - out[i-1].Timestamp())
			rate := (out[i][key] - out[i-1][key]) / days
			out[i][rateKey] = rate
			if i >= 2 {
				out[i][accelKey] = (rate - out[i-1][rateKey]) / days
			}
		}
	}
	return out, nil
}

// AddSmoothing appends "<key>_ema" computed with the given factor.
func (e *FeatureExtractor) AddSmoothing(vectors []FeatureVector, metricKeys []string, alpha float64) ([]FeatureVector, error) {
	out, err := e.prepare(vectors, metricKeys)
	if err != nil {
		return nil, err
	}
	for _, key := range metricKeys {
		ema, err := e.trend.ExponentialMovingAverage(column(out, key), alpha)
		if err != nil {
			return nil, err
		}
		for i := range out {
			out[i][key+"_ema"] = ema[i]
		}
	}
	return out, nil
}

// AddSeasonalDecomposition groups records by ISO week and calendar month
// (UTC) and appends the bucket means plus a residual equal to the value minus
// the average of both means.
func (e *FeatureExtractor) AddSeasonalDecomposition(vectors []FeatureVector, metricKey string) ([]FeatureVector, error) {
	out, err := e.prepare(vectors, []string{metricKey})
	if err != nil {
		return nil, err
	}

	weekly := make(map[string][]float64)
	monthly := make(map[string][]float64)
	weekKeys := make([]string, len(out))
	monthKeys := make([]string, len(out))
	for i, fv := range out {
		t := time.UnixMilli(fv.Timestamp()).UTC()
		weekKeys[i] = isoWeekKey(t)
		monthKeys[i] = t.Format("2006-01")
		weekly[weekKeys[i]] = append(weekly[weekKeys[i]], fv[metricKey])
		monthly[monthKeys[i]] = append(monthly[monthKeys[i]], fv[metricKey])
	}

	for i := range out {
		wm := stats.Mean(weekly[weekKeys[i]])
		mm := stats.Mean(monthly[monthKeys[i]])
		out[i][metricKey+"_weekly_mean"] = wm
		out[i][metricKey+"_monthly_mean"] = mm
		out[i][metricKey+"_seasonal_residual"] = out[i][metricKey] - (wm+mm)/2
	}
	return out, nil
}

// isoWeekKey formats the ISO-8601 week (the week holding the year's first
// Thursday is week 1) as "2006-W01".
func isoWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

func (e *FeatureExtractor) prepare(vectors []FeatureVector, keys []string) ([]FeatureVector, error) {
	if len(vectors) == 0 {
		return nil, errEmptySeries()
	}
	for _, key := range keys {
		for _, fv := range vectors {
			v, ok := fv[key]
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errMissingValue(key)
			}
		}
	}
	out := cloneVectors(vectors)
	sortVectors(out)
	return out, nil
}

func sortVectors(v []FeatureVector) {
	sort.SliceStable(v, func(i, j int) bool {
		return v[i][TimestampKey] < v[j][TimestampKey]
	})
}

func column(vectors []FeatureVector, key string) []float64 {
	out := make([]float64, len(vectors))
	for i, fv := range vectors {
		out[i] = fv[key]
	}
	return out
}

func wholeDays(deltaMs int64) float64 {
	days := math.Round(float64(deltaMs) / msPerDay)
	if days < 1 {
		return 1
	}
	return days
}

func recordTimestamp(rec Record) (int64, bool) {
	if raw, ok := rec[TimestampKey]; ok {
		if ts, ok := toTimestamp(raw); ok {
			return ts, true
		}
		return 0, false
	}
	if raw, ok := rec["date"]; ok {
		return toTimestamp(raw)
	}
	return 0, false
}

func toTimestamp(raw any) (int64, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v.UnixMilli(), true
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UnixMilli(), true
			}
		}
		return 0, false
	}
	f, ok := toFloat(raw)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}
