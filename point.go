package ignite

import (
	"math"
	"sort"
)

const msPerDay = 24 * 60 * 60 * 1000

// TimeSeriesPoint is a single measurement.
type TimeSeriesPoint struct {
	// Timestamp is the observation time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
	// Value is the measured quantity (load, pace, body weight, ...).
	Value float64 `json:"value"`
}

// Series is a sequence of measurements. Components never assume it is sorted.
type Series []TimeSeriesPoint

// Sorted returns a copy of s with non-finite values dropped, ordered by
// timestamp ascending. Equal timestamps keep their input order.
func (s Series) Sorted() Series {
	out := make(Series, 0, len(s))
	for _, p := range s {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

// Values returns the values in series order.
func (s Series) Values() []float64 {
	vals := make([]float64, len(s))
	for i, p := range s {
		vals[i] = p.Value
	}
	return vals
}

// SpanDays returns the time covered by the series in days.
func (s Series) SpanDays() float64 {
	if len(s) < 2 {
		return 0
	}
	minTs, maxTs := s[0].Timestamp, s[0].Timestamp
	for _, p := range s[1:] {
		if p.Timestamp < minTs {
			minTs = p.Timestamp
		}
		if p.Timestamp > maxTs {
			maxTs = p.Timestamp
		}
	}
	return float64(maxTs-minTs) / msPerDay
}

// XY is a regression input pair.
type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SeriesToXY maps a sorted series to regression pairs with x measured in
// days since the first point.
func SeriesToXY(s Series) []XY {
	if len(s) == 0 {
		return nil
	}
	base := s[0].Timestamp
	pts := make([]XY, len(s))
	for i, p := range s {
		pts[i] = XY{X: float64(p.Timestamp-base) / msPerDay, Y: p.Value}
	}
	return pts
}

// FeatureVector maps feature names to values. Validated records carry their
// epoch-millisecond timestamp under TimestampKey.
type FeatureVector map[string]float64

// TimestampKey is the column holding a record's timestamp.
const TimestampKey = "timestamp"

// Clone returns an independent copy.
func (f FeatureVector) Clone() FeatureVector {
	out := make(FeatureVector, len(f)+4)
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Timestamp returns the record time in Unix milliseconds.
func (f FeatureVector) Timestamp() int64 {
	return int64(f[TimestampKey])
}

// Record is a raw input row as it arrives from the outer layers: numeric
// fields plus a timestamp given as epoch milliseconds or a date string.
type Record map[string]any

func cloneVectors(in []FeatureVector) []FeatureVector {
	out := make([]FeatureVector, len(in))
	for i, v := range in {
		out[i] = v.Clone()
	}
	return out
}

// ToSeries extracts valueKey from vectors as measurements. Vectors missing
// the key are skipped.
func ToSeries(vectors []FeatureVector, valueKey string) Series {
	out := make(Series, 0, len(vectors))
	for _, v := range vectors {
		val, ok := v[valueKey]
		if !ok {
			continue
		}
		out = append(out, TimeSeriesPoint{Timestamp: v.Timestamp(), Value: val})
	}
	return out
}
