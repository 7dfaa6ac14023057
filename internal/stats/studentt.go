package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultSimpsonIntervals is the number of Simpson panels used when the
// caller passes a non-positive count.
const DefaultSimpsonIntervals = 1000

// StudentTPDF evaluates the Student-t density with df degrees of freedom.
// The normalising constant is built from LogGamma to avoid overflow at
// large df.
func StudentTPDF(x, df float64) float64 {
	if df <= 0 {
		return 0
	}
	logNorm := LogGamma((df+1)/2) - LogGamma(df/2) - 0.5*math.Log(df*math.Pi)
	return math.Exp(logNorm - (df+1)/2*math.Log1p(x*x/df))
}

// Simpson integrates f over [a, b] with the composite Simpson rule.
// n is rounded up to the next even number.
func Simpson(f func(float64) float64, a, b float64, n int) float64 {
	if n <= 0 {
		n = DefaultSimpsonIntervals
	}
	if n%2 == 1 {
		n++
	}
	if a == b {
		return 0
	}
	h := (b - a) / float64(n)
	sum := f(a) + f(b)
	for i := 1; i < n; i++ {
		x := a + float64(i)*h
		if i%2 == 1 {
			sum += 4 * f(x)
		} else {
			sum += 2 * f(x)
		}
	}
	return sum * h / 3
}

// simpsonSplit is where TwoTailedPSimpson switches from a linear grid to a
// logarithmic one. The density is concentrated well inside it for every df.
const simpsonSplit = 10.0

// TwoTailedPSimpson returns P(|T| >= |t|) for a Student-t variable by
// integrating the density from 0 to |t|. Beyond simpsonSplit the integral is
// taken over u = ln x, so a fixed panel count stays accurate for any |t|.
func TwoTailedPSimpson(t, df float64, intervals int) float64 {
	if math.IsNaN(t) || df <= 0 {
		return 1
	}
	at := math.Abs(t)
	if math.IsInf(at, 1) {
		return 0
	}
	pdf := func(x float64) float64 { return StudentTPDF(x, df) }
	area := Simpson(pdf, 0, math.Min(at, simpsonSplit), intervals)
	if at > simpsonSplit {
		area += Simpson(func(u float64) float64 {
			x := math.Exp(u)
			return pdf(x) * x
		}, math.Log(simpsonSplit), math.Log(at), intervals)
	}
	return clamp01(1 - 2*area)
}

// TwoTailedPExact returns P(|T| >= |t|) using the closed-form t CDF.
func TwoTailedPExact(t, df float64) float64 {
	if math.IsNaN(t) || df <= 0 {
		return 1
	}
	at := math.Abs(t)
	if math.IsInf(at, 1) {
		return 0
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return clamp01(2 * dist.Survival(at))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
