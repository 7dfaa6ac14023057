package ignite

import (
	"bytes"
	"container/list"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ReportContentType is the Content-Type of archived report objects.
const ReportContentType = "application/x-ignite-report"

// S3BackendConfig configures the S3 report backend.
type S3BackendConfig struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	// Endpoint targets S3-compatible services such as MinIO.
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
	// Static credentials. Leave empty to use the default AWS chain.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	// Prefix namespaces report keys inside the bucket, e.g. "athlete-42/".
	Prefix string `yaml:"prefix"`
	// CacheSize is the number of report blobs kept in memory. Default: 100.
	CacheSize int `yaml:"cache_size"`
	// MaxRetries bounds attempts per S3 call. Default: 3.
	MaxRetries int `yaml:"max_retries"`
	// RetryBackoff is the first retry delay. Default: 100ms.
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// s3API is the subset of *s3.Client the backend calls.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// S3Backend archives report blobs in a bucket. Objects written under a
// ReportKey carry the metric and report id as object metadata, and the most
// recently used report blobs are served from memory.
type S3Backend struct {
	client  s3API
	bucket  string
	prefix  string
	cache   *reportCache
	retryer *Retryer
}

// NewS3Backend loads AWS configuration and creates the client.
func NewS3Backend(cfg S3BackendConfig) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, newValidationError(ValidationErrorTypeMissing, "bucket is required", "s3.bucket", nil)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3BackendWithClient(client, cfg), nil
}

func newS3BackendWithClient(client s3API, cfg S3BackendConfig) *S3Backend {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 100
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	return &S3Backend{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		cache:  newReportCache(cfg.CacheSize),
		retryer: NewRetryer(RetryConfig{
			MaxAttempts:    cfg.MaxRetries,
			InitialBackoff: cfg.RetryBackoff,
			MaxBackoff:     10 * time.Second,
			Jitter:         0.1,
			RetryIf:        retryableS3,
		}),
	}
}

func (s *S3Backend) objectKey(key string) string {
	return s.prefix + key
}

func (s *S3Backend) Read(ctx context.Context, key string) ([]byte, error) {
	if data, ok := s.cache.get(key); ok {
		return data, nil
	}

	data, result := DoWithResult(ctx, s.retryer, func() ([]byte, error) {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.objectKey(key)),
		})
		if err != nil {
			return nil, err
		}
		defer func() { _ = out.Body.Close() }()
		return io.ReadAll(out.Body)
	})
	if err := result.LastErr; err != nil {
		if isS3NotFound(err) {
			return nil, newStorageError(StorageErrorTypeNotFound, "report not in bucket", key, fs.ErrNotExist)
		}
		return nil, newStorageError(StorageErrorTypeRead, "s3 get failed", key, err)
	}
	s.cache.put(key, data)
	return data, nil
}

func (s *S3Backend) Write(ctx context.Context, key string, data []byte) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	}
	if metric, id, ok := parseReportKey(key); ok {
		in.ContentType = aws.String(ReportContentType)
		in.Metadata = map[string]string{"metric": metric, "report-id": id}
	}

	result := s.retryer.Do(ctx, func() error {
		in.Body = bytes.NewReader(data)
		_, err := s.client.PutObject(ctx, in)
		return err
	})
	if result.LastErr != nil {
		s.cache.drop(key)
		return newStorageError(StorageErrorTypeWrite, "s3 put failed", key, result.LastErr)
	}
	s.cache.put(key, data)
	return nil
}

// Delete removes an object. Deleting a missing report is not an error.
func (s *S3Backend) Delete(ctx context.Context, key string) error {
	s.cache.drop(key)
	result := s.retryer.Do(ctx, func() error {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.objectKey(key)),
		})
		if isS3NotFound(err) {
			return nil
		}
		return err
	})
	if result.LastErr != nil {
		return newStorageError(StorageErrorTypeWrite, "s3 delete failed", key, result.LastErr)
	}
	return nil
}

// List returns archive keys under prefix, without the bucket prefix. Folder
// placeholder objects created by consoles are skipped.
func (s *S3Backend) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	pages := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.objectKey(prefix)),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, newStorageError(StorageErrorTypeRead, "s3 list failed", prefix, err)
		}
		for _, obj := range page.Contents {
			key := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *S3Backend) Exists(ctx context.Context, key string) (bool, error) {
	if _, ok := s.cache.get(key); ok {
		return true, nil
	}
	result := s.retryer.Do(ctx, func() error {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.objectKey(key)),
		})
		return err
	})
	switch {
	case result.LastErr == nil:
		return true, nil
	case isS3NotFound(result.LastErr):
		return false, nil
	default:
		return false, newStorageError(StorageErrorTypeRead, "s3 head failed", key, result.LastErr)
	}
}

// Close drops cached blobs. The client holds no resources.
func (s *S3Backend) Close() error {
	s.cache.reset()
	return nil
}

// reportCache is an LRU of report blobs keyed by archive key. Keys that are
// not report keys are never cached.
type reportCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

type cachedReport struct {
	key  string
	data []byte
}

func newReportCache(capacity int) *reportCache {
	return &reportCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

func (c *reportCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cachedReport).data, true
}

func (c *reportCache) put(key string, data []byte) {
	if _, _, ok := parseReportKey(key); !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		el.Value.(*cachedReport).data = data
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&cachedReport{key: key, data: data})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cachedReport).key)
	}
}

func (c *reportCache) drop(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
	}
}

func (c *reportCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *reportCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[string]*list.Element)
}

// httpStatus extracts the HTTP status from an SDK response error, or 0.
func httpStatus(err error) int {
	var se interface{ HTTPStatusCode() int }
	if errors.As(err, &se) {
		return se.HTTPStatusCode()
	}
	return 0
}

func isS3NotFound(err error) bool {
	if err == nil {
		return false
	}
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf) || httpStatus(err) == http.StatusNotFound
}

// retryableS3 retries throttling and server errors. Other HTTP statuses are
// final; errors without a status fall back to IsRetryable.
func retryableS3(err error) bool {
	if isS3NotFound(err) {
		return false
	}
	switch code := httpStatus(err); {
	case code == http.StatusTooManyRequests, code >= http.StatusInternalServerError:
		return true
	case code != 0:
		return false
	}
	return IsRetryable(err)
}
