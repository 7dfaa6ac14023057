package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogGamma(t *testing.T) {
	assert.InDelta(t, 24.0, Gamma(5), 1e-9)
	assert.InDelta(t, math.Sqrt(math.Pi), Gamma(0.5), 1e-12)
	assert.InDelta(t, 1.0, Gamma(1), 1e-12)

	lg, _ := math.Lgamma(123.4)
	assert.InDelta(t, lg, LogGamma(123.4), 1e-8)
}

func TestStudentTPDF(t *testing.T) {
	// df=1 is the standard Cauchy distribution.
	assert.InDelta(t, 1/math.Pi, StudentTPDF(0, 1), 1e-12)
	assert.InDelta(t, 1/(2*math.Pi), StudentTPDF(1, 1), 1e-12)
	assert.Zero(t, StudentTPDF(0, 0))
}

func TestSimpson(t *testing.T) {
	square := func(x float64) float64 { return x * x }
	assert.InDelta(t, 9.0, Simpson(square, 0, 3, 10), 1e-12)
	// odd panel counts are bumped to even
	assert.InDelta(t, 9.0, Simpson(square, 0, 3, 7), 1e-12)
	assert.Zero(t, Simpson(square, 2, 2, 10))
}

func TestTwoTailedP(t *testing.T) {
	tests := []struct {
		t, df, want float64
	}{
		{2.0, 10, 0.07339},
		{0, 5, 1},
		{2.228, 10, 0.05},
		{12.7062, 1, 0.05},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, TwoTailedPExact(tt.t, tt.df), 1e-3, "exact t=%v df=%v", tt.t, tt.df)
		assert.InDelta(t, tt.want, TwoTailedPSimpson(tt.t, tt.df, DefaultSimpsonIntervals), 1e-3, "simpson t=%v df=%v", tt.t, tt.df)
	}

	assert.Zero(t, TwoTailedPSimpson(math.Inf(1), 4, 0))
	assert.Zero(t, TwoTailedPExact(math.Inf(-1), 4))
	assert.Equal(t, 1.0, TwoTailedPSimpson(1, 0, 0))
	assert.Equal(t, 1.0, TwoTailedPExact(math.NaN(), 3))
}

func TestTwoTailedPSimpsonLargeT(t *testing.T) {
	// t around 2000 with df=98 is a near-perfect correlation over 100 points.
	for _, tt := range []float64{800, 2001.3, 3201.9, 1e6} {
		p := TwoTailedPSimpson(tt, 98, DefaultSimpsonIntervals)
		assert.Less(t, p, 1e-6, "t=%v", tt)
	}

	// heavy tails still need the region beyond the linear grid
	for _, tt := range []float64{15, 40, 2000, 1e5} {
		assert.InDelta(t, TwoTailedPExact(tt, 1), TwoTailedPSimpson(tt, 1, DefaultSimpsonIntervals), 1e-7, "df=1 t=%v", tt)
		assert.InDelta(t, TwoTailedPExact(tt, 3), TwoTailedPSimpson(tt, 3, DefaultSimpsonIntervals), 1e-7, "df=3 t=%v", tt)
	}

	// p must not grow as |t| grows
	prev := 1.0
	for tt := 1.0; tt < 5000; tt *= 1.7 {
		p := TwoTailedPSimpson(tt, 98, DefaultSimpsonIntervals)
		assert.LessOrEqual(t, p, prev+1e-8, "t=%v", tt)
		prev = p
	}
}

func TestDescriptive(t *testing.T) {
	x := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 5.0, Mean(x), 1e-12)
	assert.InDelta(t, 2.0, PopStdDev(x), 1e-12)
	assert.InDelta(t, math.Sqrt(32.0/7.0), StdDev(x), 1e-12)

	assert.Zero(t, Mean(nil))
	assert.Zero(t, StdDev([]float64{3}))
	assert.Zero(t, PopStdDev(nil))
}

func TestPearson(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 1.0, Pearson(x, []float64{2, 4, 6, 8, 10}), 1e-12)
	assert.InDelta(t, -1.0, Pearson(x, []float64{5, 4, 3, 2, 1}), 1e-12)
	assert.Zero(t, Pearson(x, []float64{3, 3, 3, 3, 3}))
	assert.Zero(t, Pearson([]float64{1}, []float64{1}))
	assert.Zero(t, Pearson(x, []float64{1, 2}))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.67, Round(0.666, 2))
	assert.Equal(t, 1.0, Round(0.999, 2))
}
