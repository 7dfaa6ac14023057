package ignite

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairs(xs, ys []float64) []FeatureVector {
	out := make([]FeatureVector, len(xs))
	for i := range xs {
		out[i] = FeatureVector{TimestampKey: float64(i), "x": xs[i], "y": ys[i]}
	}
	return out
}

func TestCorrelationPerfect(t *testing.T) {
	e := newTestExtractor()
	res, err := e.CorrelationAnalysis(pairs([]float64{1, 2, 3, 4, 5}, []float64{2, 4, 6, 8, 10}), "x", "y")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, res.Correlation, 1e-12)
	assert.InDelta(t, 0.0, res.PValue, 1e-12)
	assert.True(t, res.Significant)
	assert.Equal(t, 5, res.N)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"tStatistic":"Infinity"`)
	assert.Contains(t, string(raw), `"xKey":"x"`)
}

func TestCorrelationNegative(t *testing.T) {
	e := newTestExtractor()
	res, err := e.CorrelationAnalysis(pairs([]float64{1, 2, 3, 4}, []float64{8, 6, 4, 2}), "x", "y")
	require.NoError(t, err)
	assert.InDelta(t, -1.0, res.Correlation, 1e-12)
	assert.Zero(t, res.PValue)
}

func TestCorrelationDegenerate(t *testing.T) {
	e := newTestExtractor()

	flat, err := e.CorrelationAnalysis(pairs([]float64{1, 2, 3, 4}, []float64{5, 5, 5, 5}), "x", "y")
	require.NoError(t, err)
	assert.Zero(t, flat.Correlation)
	assert.Equal(t, 1.0, flat.PValue)
	assert.False(t, flat.Significant)

	short, err := e.CorrelationAnalysis(pairs([]float64{1, 2}, []float64{3, 5}), "x", "y")
	require.NoError(t, err)
	assert.Equal(t, 1.0, short.PValue)

	_, err = e.CorrelationAnalysis(nil, "x", "y")
	assert.True(t, errors.Is(err, ErrEmptySeries))

	_, err = e.CorrelationAnalysis(pairs([]float64{1}, []float64{2}), "x", "z")
	assert.True(t, errors.Is(err, ErrMissingValue))
}

func TestCorrelationPValueMethodsAgree(t *testing.T) {
	data := pairs([]float64{1, 2, 3, 4, 5}, []float64{2, 4, 5, 4, 5})

	simpson := newTestExtractor()
	exactCfg := DefaultCorrelationConfig()
	exactCfg.PValueMethod = PValueExact
	exact := NewFeatureExtractor(DefaultFeatureConfig(), exactCfg, nil, nil)

	a, err := simpson.CorrelationAnalysis(data, "x", "y")
	require.NoError(t, err)
	b, err := exact.CorrelationAnalysis(data, "x", "y")
	require.NoError(t, err)

	assert.InDelta(t, 0.7745966692, a.Correlation, 1e-9)
	assert.InDelta(t, 2.1213203436, a.TStatistic, 1e-9)
	assert.InDelta(t, b.PValue, a.PValue, 1e-4)
	assert.Greater(t, a.PValue, 0.1)
	assert.Less(t, a.PValue, 0.15)
	assert.False(t, a.Significant)
}

func TestCorrelationSymmetric(t *testing.T) {
	e := newTestExtractor()
	data := pairs([]float64{1, 3, 2, 5, 4, 6}, []float64{2, 3, 3, 6, 4, 7})

	xy, err := e.CorrelationAnalysis(data, "x", "y")
	require.NoError(t, err)
	yx, err := e.CorrelationAnalysis(data, "y", "x")
	require.NoError(t, err)

	assert.InDelta(t, xy.Correlation, yx.Correlation, 1e-12)
	assert.InDelta(t, xy.PValue, yx.PValue, 1e-12)
	assert.GreaterOrEqual(t, xy.PValue, 0.0)
	assert.LessOrEqual(t, xy.PValue, 1.0)
}

func TestCorrelationNearPerfectIsSignificant(t *testing.T) {
	xs := make([]float64, 100)
	ys := make([]float64, 100)
	for i := range xs {
		xs[i] = float64(i + 1)
		ys[i] = 2*xs[i] + 0.2*float64((i*7)%5-2)
	}

	res, err := newTestExtractor().CorrelationAnalysis(pairs(xs, ys), "x", "y")
	require.NoError(t, err)
	assert.Greater(t, res.Correlation, 0.9999)
	assert.Greater(t, res.TStatistic, 1000.0)
	assert.Less(t, res.PValue, 1e-6)
	assert.True(t, res.Significant)
}
