package ignite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlateauInsufficientData(t *testing.T) {
	d := NewPlateauDetector(DefaultPlateauConfig(), nil, nil)
	res := d.Detect(seriesOf(7, 100, 101, 102, 103))

	assert.False(t, res.Plateau)
	assert.False(t, res.ChangePoint)
	assert.Zero(t, res.Confidence)
	assert.Equal(t, []string{"Insufficient data"}, res.Reasons)
	assert.NotNil(t, res.Recommendations)
	assert.Empty(t, res.Recommendations)
}

func TestPlateauDetectsStall(t *testing.T) {
	d := NewPlateauDetector(DefaultPlateauConfig(), nil, nil)
	res := d.Detect(seriesOf(7, 50, 55, 60, 65, 70, 75, 80, 80, 80, 80))

	// Slope collapse (0.4), a rolling-slope change point (0.3) and a flat
	// tail over 63 days (0.2).
	assert.True(t, res.Plateau)
	assert.True(t, res.ChangePoint)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
	assert.Len(t, res.Reasons, 3)
	assert.Len(t, res.Recommendations, 3)
}

func TestPlateauSteadyProgress(t *testing.T) {
	d := NewPlateauDetector(DefaultPlateauConfig(), nil, nil)
	// One unit per day keeps every regression exact.
	res := d.Detect(seriesOf(7, 100, 107, 114, 121, 128, 135, 142, 149))

	assert.False(t, res.Plateau)
	assert.False(t, res.ChangePoint)
	assert.Zero(t, res.Confidence)
	assert.Empty(t, res.Reasons)
	assert.NotNil(t, res.Reasons)
}

func TestPlateauFlatShortSpan(t *testing.T) {
	d := NewPlateauDetector(DefaultPlateauConfig(), nil, nil)
	// Flat but only 5 days long and never rising: no signal fires.
	res := d.Detect(seriesOf(1, 80, 80, 80, 80, 80, 80))
	assert.False(t, res.Plateau)
	assert.Zero(t, res.Confidence)
}

func TestPlateauScoreBounds(t *testing.T) {
	d := NewPlateauDetector(DefaultPlateauConfig(), nil, nil)
	inputs := []Series{
		seriesOf(7, 50, 55, 60, 65, 70, 75, 80, 80, 80, 80),
		seriesOf(1, 1, 9, 2, 8, 3, 7, 4, 6),
		seriesOf(3, 200, 190, 180, 170, 160, 150),
	}
	for _, s := range inputs {
		res := d.Detect(s)
		require.GreaterOrEqual(t, res.Confidence, 0.0)
		require.LessOrEqual(t, res.Confidence, 1.0)
		if res.Plateau {
			assert.True(t, res.ChangePoint)
		}
	}
}

func TestPlateauDailyStallWithoutFlatSpan(t *testing.T) {
	d := NewPlateauDetector(DefaultPlateauConfig(), nil, nil)
	// Nine days is too short for the flat-tail signal, the other two fire.
	res := d.Detect(seriesOf(1, 50, 55, 60, 65, 70, 75, 80, 80, 80, 80))

	assert.True(t, res.Plateau)
	assert.GreaterOrEqual(t, res.Confidence, 0.6)
	assert.InDelta(t, 0.7, res.Confidence, 1e-9)
	assert.Len(t, res.Reasons, 2)
}
