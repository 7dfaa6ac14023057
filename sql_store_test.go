package ignite

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"github.com/kemurphy3/ignite-fitness-sub001/internal/testutil"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	_, path := testutil.TempDBPath(t)
	store, err := OpenSQLStore(context.Background(), StorageConfig{Driver: "sqlite", DSN: path}, nil)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenSQLStore(t *testing.T) {
	_, path := testutil.TempDBPath(t)
	store, err := OpenSQLStore(context.Background(), StorageConfig{Driver: "sqlite", DSN: path}, nil)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if store.Driver() != "sqlite" {
		t.Errorf("expected sqlite driver, got %s", store.Driver())
	}
	// Schema creation is idempotent.
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Errorf("EnsureSchema failed: %v", err)
	}
}

func TestOpenSQLStore_InvalidDriver(t *testing.T) {
	_, err := OpenSQLStore(context.Background(), StorageConfig{Driver: "postgres"}, nil)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	_, err = OpenSQLStore(context.Background(), StorageConfig{Driver: "mysql", DSN: "not a dsn"}, nil)
	if !IsValidation(err) {
		t.Errorf("expected validation error for bad mysql dsn, got %v", err)
	}
}

func TestSQLStore_AppendAndQuery(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	points := seriesOf(1, 100, 101, math.NaN(), 103, math.Inf(1))
	n, err := store.AppendPoints(ctx, "squat", points)
	if err != nil {
		t.Fatalf("AppendPoints failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 points written, got %d", n)
	}

	// Re-appending a timestamp replaces its value.
	if _, err := store.AppendPoints(ctx, "squat", Series{{Timestamp: points[0].Timestamp, Value: 99}}); err != nil {
		t.Fatalf("AppendPoints failed: %v", err)
	}

	got, err := store.Series(ctx, "squat", 0, 0)
	if err != nil {
		t.Fatalf("Series failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 points, got %d", len(got))
	}
	if got[0].Value != 99 || got[2].Value != 103 {
		t.Errorf("unexpected values: %v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp <= got[i-1].Timestamp {
			t.Error("series not ascending")
		}
	}

	bounded, err := store.Series(ctx, "squat", points[1].Timestamp, points[1].Timestamp)
	if err != nil {
		t.Fatalf("Series failed: %v", err)
	}
	if len(bounded) != 1 || bounded[0].Value != 101 {
		t.Errorf("expected only the second point, got %v", bounded)
	}

	none, err := store.Series(ctx, "bench", 0, 0)
	if err != nil {
		t.Fatalf("Series failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no points, got %d", len(none))
	}

	if _, err := store.AppendPoints(ctx, " ", points); !errors.Is(err, ErrMissingValue) {
		t.Errorf("expected ErrMissingValue for blank metric, got %v", err)
	}
}

func TestSQLStore_Metrics(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, _ = store.AppendPoints(ctx, "squat", seriesOf(7, 100, 105, 110))
	_, _ = store.AppendPoints(ctx, "bench", seriesOf(7, 80))

	metrics, err := store.Metrics(ctx)
	if err != nil {
		t.Fatalf("Metrics failed: %v", err)
	}
	if len(metrics) != 2 {
		t.Fatalf("expected 2 metrics, got %d", len(metrics))
	}
	if metrics[0].Name != "bench" || metrics[1].Name != "squat" {
		t.Errorf("expected sorted metrics, got %v", metrics)
	}
	sq := metrics[1]
	if sq.Points != 3 || sq.First != testutil.Base.UnixMilli() || sq.Last != sq.First+14*testutil.DayMillis {
		t.Errorf("unexpected squat info: %+v", sq)
	}
}

func TestSQLStore_ReportIndex(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.LatestReport(ctx, "squat"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("expected ErrReportNotFound, got %v", err)
	}

	old := &Report{ID: "a", Metric: "squat", GeneratedAt: fixedClock().Add(-48 * time.Hour), Points: 4}
	recent := &Report{ID: "b", Metric: "squat", GeneratedAt: fixedClock(), Points: 5}
	recent.Trend.Direction = TrendIncreasing
	recent.Plateau = PlateauResult{Plateau: true, Confidence: 0.7}

	for _, r := range []*Report{old, recent} {
		if err := store.SaveReportIndex(ctx, r, ReportKey(r.Metric, r.ID)); err != nil {
			t.Fatalf("SaveReportIndex failed: %v", err)
		}
	}

	latest, err := store.LatestReport(ctx, "squat")
	if err != nil {
		t.Fatalf("LatestReport failed: %v", err)
	}
	if latest.ID != "b" || !latest.Plateau || latest.Confidence != 0.7 || latest.Direction != TrendIncreasing {
		t.Errorf("unexpected latest entry: %+v", latest)
	}
	if !latest.GeneratedAt.Equal(fixedClock()) {
		t.Errorf("expected %v, got %v", fixedClock(), latest.GeneratedAt)
	}

	keys, err := store.DeleteReportsBefore(ctx, fixedClock().Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeleteReportsBefore failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != ReportKey("squat", "a") {
		t.Errorf("expected old key, got %v", keys)
	}

	latest, err = store.LatestReport(ctx, "squat")
	if err != nil || latest.ID != "b" {
		t.Errorf("recent report should survive pruning: %v %v", latest, err)
	}
}

func TestSQLStore_Closed(t *testing.T) {
	store := openTestStore(t)
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Double close is a no-op.
	if err := store.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	ctx := context.Background()
	if _, err := store.AppendPoints(ctx, "squat", seriesOf(1, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := store.Series(ctx, "squat", 0, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := store.Metrics(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
