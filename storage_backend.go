package ignite

import (
	"context"
	"fmt"
)

// ReportBackend stores encoded report blobs by key.
// Read returns an error matching os.ErrNotExist for missing keys.
type ReportBackend interface {
	// Read reads a blob.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write writes a blob, replacing any previous value.
	Write(ctx context.Context, key string, data []byte) error

	// Delete removes a blob.
	Delete(ctx context.Context, key string) error

	// List returns all keys with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists checks if a key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases any resources.
	Close() error
}

// OpenReportBackend selects a backend from storage settings: S3 when
// configured, a directory when ReportDir is set, memory otherwise. Encryption
// wraps whichever backend was chosen.
func OpenReportBackend(cfg StorageConfig) (ReportBackend, error) {
	var (
		backend ReportBackend
		err     error
	)
	switch {
	case cfg.S3 != nil && cfg.S3.Bucket != "":
		backend, err = NewS3Backend(*cfg.S3)
	case cfg.ReportDir != "":
		backend, err = NewFileBackend(cfg.ReportDir)
	default:
		backend = NewMemoryBackend()
	}
	if err != nil {
		return nil, fmt.Errorf("open report backend: %w", err)
	}

	if cfg.Encryption != nil && cfg.Encryption.Enabled {
		enc, err := NewEncryptedBackend(backend, *cfg.Encryption)
		if err != nil {
			_ = backend.Close()
			return nil, err
		}
		return enc, nil
	}
	return backend, nil
}
