// Package stats provides the numerical kernels used by the analysis engine.
//
// The package contains:
//   - Descriptive statistics over float slices (mean, sample and population deviation)
//   - A Lanczos approximation of the log-gamma function
//   - The Student-t probability density and two-tailed significance, either by
//     Simpson's rule integration of the density or by the exact CDF
package stats
