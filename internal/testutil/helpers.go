// Package testutil provides shared test helpers.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// DayMillis is one day in Unix milliseconds.
const DayMillis = int64(24 * time.Hour / time.Millisecond)

// Base is a fixed Monday used as the first timestamp in test series.
var Base = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// TempDBPath returns a temporary directory and database file path. The
// directory is removed when the test completes.
func TempDBPath(t *testing.T) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "test.db")
	return dir, path
}

// MustNotExist fails the test if path exists.
func MustNotExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Fatalf("expected %s to not exist", path)
	}
}

// Stamps returns n Unix-millisecond timestamps starting at Base, stepDays
// apart.
func Stamps(n int, stepDays float64) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = Base.UnixMilli() + int64(float64(i)*stepDays*float64(DayMillis))
	}
	return out
}

// Linear returns n values start, start+step, ...
func Linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
