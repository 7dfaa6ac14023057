package ignite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// ReportIndexEntry is the SQL row describing one archived report.
type ReportIndexEntry struct {
	ID          string         `json:"id"`
	Metric      string         `json:"metric"`
	GeneratedAt time.Time      `json:"generatedAt"`
	ArchiveKey  string         `json:"archiveKey"`
	Points      int            `json:"points"`
	Direction   TrendDirection `json:"direction"`
	Plateau     bool           `json:"plateau"`
	Confidence  float64        `json:"confidence"`
}

// MetricInfo summarises the stored measurements of one metric.
type MetricInfo struct {
	Name   string `json:"name"`
	Points int64  `json:"points"`
	First  int64  `json:"first"`
	Last   int64  `json:"last"`
}

type sqlDialect struct {
	schema      []string
	upsertPoint string
}

var sqliteDialect = sqlDialect{
	schema: []string{
		`CREATE TABLE IF NOT EXISTS measurements (
			metric TEXT NOT NULL,
			ts INTEGER NOT NULL,
			value REAL NOT NULL,
			PRIMARY KEY (metric, ts)
		)`,
		`CREATE TABLE IF NOT EXISTS report_index (
			id TEXT PRIMARY KEY,
			metric TEXT NOT NULL,
			generated_at INTEGER NOT NULL,
			archive_key TEXT NOT NULL,
			points INTEGER NOT NULL,
			direction TEXT NOT NULL,
			plateau INTEGER NOT NULL,
			confidence REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_report_index_metric ON report_index(metric, generated_at)`,
	},
	upsertPoint: `INSERT INTO measurements (metric, ts, value) VALUES (?, ?, ?)
		ON CONFLICT(metric, ts) DO UPDATE SET value = excluded.value`,
}

var mysqlDialect = sqlDialect{
	schema: []string{
		`CREATE TABLE IF NOT EXISTS measurements (
			metric VARCHAR(191) NOT NULL,
			ts BIGINT NOT NULL,
			value DOUBLE NOT NULL,
			PRIMARY KEY (metric, ts)
		)`,
		`CREATE TABLE IF NOT EXISTS report_index (
			id VARCHAR(64) PRIMARY KEY,
			metric VARCHAR(191) NOT NULL,
			generated_at BIGINT NOT NULL,
			archive_key VARCHAR(512) NOT NULL,
			points INT NOT NULL,
			direction VARCHAR(16) NOT NULL,
			plateau TINYINT NOT NULL,
			confidence DOUBLE NOT NULL,
			INDEX idx_report_index_metric (metric, generated_at)
		)`,
	},
	upsertPoint: `INSERT INTO measurements (metric, ts, value) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE value = VALUES(value)`,
}

// SQLStore persists measurements and the report index in SQLite or MySQL.
type SQLStore struct {
	db      *sql.DB
	driver  string
	dialect sqlDialect
	logger  Logger

	mu     sync.RWMutex
	closed bool
}

// OpenSQLStore opens the configured database and creates the schema.
func OpenSQLStore(ctx context.Context, cfg StorageConfig, logger Logger) (*SQLStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite"
	}
	dsn := cfg.DSN
	if dsn == "" {
		dsn = "ignite.db"
	}

	var (
		db      *sql.DB
		dialect sqlDialect
	)
	switch driver {
	case "sqlite":
		var err error
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		// SQLite serialises writers; one connection avoids busy errors.
		db.SetMaxOpenConns(1)
		dialect = sqliteDialect
	case "mysql":
		mcfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, newValidationError(ValidationErrorTypeRange, "invalid mysql dsn", "storage.dsn", err)
		}
		connector, err := mysql.NewConnector(mcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create MySQL connector: %w", err)
		}
		db = sql.OpenDB(connector)
		db.SetMaxOpenConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)
		dialect = mysqlDialect
	default:
		return nil, errOutOfRange("storage.driver", fmt.Sprintf("unsupported driver %q", driver))
	}

	s := &SQLStore{db: db, driver: driver, dialect: dialect, logger: loggerOrNop(logger)}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Info("sql store opened", "driver", driver)
	return s, nil
}

// EnsureSchema creates tables and indexes if they are missing.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// AppendPoints upserts points for metric in one transaction. Non-finite
// values are skipped; the number written is returned.
func (s *SQLStore) AppendPoints(ctx context.Context, metric string, points Series) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(metric) == "" {
		return 0, errMissingValue("metric")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.dialect.upsertPoint)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, p := range points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			continue
		}
		if _, err := stmt.ExecContext(ctx, metric, p.Timestamp, p.Value); err != nil {
			return 0, newStorageError(StorageErrorTypeWrite, "failed to write point", metric, err)
		}
		written++
	}
	if err := tx.Commit(); err != nil {
		return 0, newStorageError(StorageErrorTypeWrite, "failed to commit points", metric, err)
	}
	return written, nil
}

// Series returns points of metric with from <= timestamp <= to, ascending.
// A non-positive to means no upper bound.
func (s *SQLStore) Series(ctx context.Context, metric string, from, to int64) (Series, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if to <= 0 {
		to = math.MaxInt64
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, value FROM measurements WHERE metric = ? AND ts >= ? AND ts <= ? ORDER BY ts`,
		metric, from, to)
	if err != nil {
		return nil, newStorageError(StorageErrorTypeRead, "failed to query series", metric, err)
	}
	defer rows.Close()

	var out Series
	for rows.Next() {
		var p TimeSeriesPoint
		if err := rows.Scan(&p.Timestamp, &p.Value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Metrics lists every metric with stored measurements.
func (s *SQLStore) Metrics(ctx context.Context) ([]MetricInfo, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT metric, COUNT(*), MIN(ts), MAX(ts) FROM measurements GROUP BY metric ORDER BY metric`)
	if err != nil {
		return nil, newStorageError(StorageErrorTypeRead, "failed to query metrics", "", err)
	}
	defer rows.Close()

	var out []MetricInfo
	for rows.Next() {
		var m MetricInfo
		if err := rows.Scan(&m.Name, &m.Points, &m.First, &m.Last); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SaveReportIndex records where a report was archived.
func (s *SQLStore) SaveReportIndex(ctx context.Context, r *Report, archiveKey string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	plateau := 0
	if r.Plateau.Plateau {
		plateau = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO report_index (id, metric, generated_at, archive_key, points, direction, plateau, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Metric, r.GeneratedAt.UnixMilli(), archiveKey, r.Points, string(r.Trend.Direction), plateau, r.Plateau.Confidence)
	if err != nil {
		return newStorageError(StorageErrorTypeWrite, "failed to index report", r.ID, err)
	}
	return nil
}

// LatestReport returns the newest index entry for metric.
func (s *SQLStore) LatestReport(ctx context.Context, metric string) (*ReportIndexEntry, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, metric, generated_at, archive_key, points, direction, plateau, confidence
		FROM report_index WHERE metric = ? ORDER BY generated_at DESC, id DESC LIMIT 1`, metric)

	var (
		e         ReportIndexEntry
		generated int64
		direction string
		plateau   int
	)
	err := row.Scan(&e.ID, &e.Metric, &generated, &e.ArchiveKey, &e.Points, &direction, &plateau, &e.Confidence)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newStorageError(StorageErrorTypeNotFound, "no report indexed", metric, nil)
	}
	if err != nil {
		return nil, newStorageError(StorageErrorTypeRead, "failed to read report index", metric, err)
	}
	e.GeneratedAt = time.UnixMilli(generated).UTC()
	e.Direction = TrendDirection(direction)
	e.Plateau = plateau != 0
	return &e, nil
}

// DeleteReportsBefore removes index rows generated before cutoff and
// returns their archive keys.
func (s *SQLStore) DeleteReportsBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT archive_key FROM report_index WHERE generated_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return nil, newStorageError(StorageErrorTypeRead, "failed to query expired reports", "", err)
	}
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan archive key: %w", err)
		}
		keys = append(keys, k)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM report_index WHERE generated_at < ?`, cutoff.UnixMilli()); err != nil {
		return nil, newStorageError(StorageErrorTypeWrite, "failed to delete expired reports", "", err)
	}
	return keys, nil
}

// Driver returns the database/sql driver name in use.
func (s *SQLStore) Driver() string {
	return s.driver
}

// Close closes the database.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}
