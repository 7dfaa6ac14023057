package ignite

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

const (
	reportKeyPrefix = "reports/"
	reportKeyExt    = ".igr"
)

// ReportKey returns the archive key for a report.
func ReportKey(metric, id string) string {
	return reportKeyPrefix + path.Clean(metric) + "/" + id + reportKeyExt
}

// parseReportKey splits a key produced by ReportKey back into metric and id.
func parseReportKey(key string) (metric, id string, ok bool) {
	rest, found := strings.CutPrefix(key, reportKeyPrefix)
	if !found {
		return "", "", false
	}
	rest, found = strings.CutSuffix(rest, reportKeyExt)
	if !found {
		return "", "", false
	}
	i := strings.LastIndexByte(rest, '/')
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}

// ReportArchive stores encoded reports in a backend and optionally indexes
// them in a SQL store.
type ReportArchive struct {
	backend ReportBackend
	index   *SQLStore
	logger  Logger
}

// NewReportArchive creates an archive. index may be nil.
func NewReportArchive(backend ReportBackend, index *SQLStore, logger Logger) *ReportArchive {
	return &ReportArchive{backend: backend, index: index, logger: loggerOrNop(logger)}
}

// Save encodes and stores r, then indexes it. It returns the archive key.
func (a *ReportArchive) Save(ctx context.Context, r *Report) (string, error) {
	data, err := EncodeReport(r)
	if err != nil {
		return "", err
	}
	key := ReportKey(r.Metric, r.ID)
	if err := a.backend.Write(ctx, key, data); err != nil {
		return "", newStorageError(StorageErrorTypeWrite, "failed to archive report", key, err)
	}
	if a.index != nil {
		if err := a.index.SaveReportIndex(ctx, r, key); err != nil {
			// An unindexed blob would never be pruned.
			if derr := a.backend.Delete(ctx, key); derr != nil {
				a.logger.Warn("failed to remove unindexed report", "key", key, "error", derr)
			}
			return "", err
		}
	}
	a.logger.Debug("report archived", "key", key, "bytes", len(data))
	return key, nil
}

// Load reads one report.
func (a *ReportArchive) Load(ctx context.Context, metric, id string) (*Report, error) {
	return a.loadKey(ctx, ReportKey(metric, id))
}

func (a *ReportArchive) loadKey(ctx context.Context, key string) (*Report, error) {
	data, err := a.backend.Read(ctx, key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, newStorageError(StorageErrorTypeNotFound, "report not archived", key, err)
	}
	if err != nil {
		return nil, newStorageError(StorageErrorTypeRead, "failed to read report", key, err)
	}
	return DecodeReport(data)
}

// IDs lists archived report ids for metric in key order.
func (a *ReportArchive) IDs(ctx context.Context, metric string) ([]string, error) {
	prefix := reportKeyPrefix + path.Clean(metric) + "/"
	keys, err := a.backend.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	want := path.Clean(metric)
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		m, id, ok := parseReportKey(k)
		if !ok || m != want {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Latest returns the newest report for metric, using the SQL index when
// present and scanning the backend otherwise.
func (a *ReportArchive) Latest(ctx context.Context, metric string) (*Report, error) {
	if a.index != nil {
		entry, err := a.index.LatestReport(ctx, metric)
		if err != nil {
			return nil, err
		}
		return a.loadKey(ctx, entry.ArchiveKey)
	}

	ids, err := a.IDs(ctx, metric)
	if err != nil {
		return nil, err
	}
	var latest *Report
	for _, id := range ids {
		r, err := a.Load(ctx, metric, id)
		if err != nil {
			return nil, err
		}
		if latest == nil || r.GeneratedAt.After(latest.GeneratedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, newStorageError(StorageErrorTypeNotFound, "no report archived", metric, nil)
	}
	return latest, nil
}

// Prune drops reports older than retention from the index and the backend.
// It needs the SQL index and returns the number of reports removed.
func (a *ReportArchive) Prune(ctx context.Context, now time.Time, retention time.Duration) (int, error) {
	if a.index == nil || retention <= 0 {
		return 0, nil
	}
	keys, err := a.index.DeleteReportsBefore(ctx, now.Add(-retention))
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		if err := a.backend.Delete(ctx, k); err != nil {
			a.logger.Warn("failed to delete archived report", "key", k, "error", err)
		}
	}
	if len(keys) > 0 {
		a.logger.Info("reports pruned", "count", len(keys))
	}
	return len(keys), nil
}

// Close closes the backend. The SQL store is owned by the caller.
func (a *ReportArchive) Close() error {
	return a.backend.Close()
}
