package ignite

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"strings"
	"time"
)

// RetryConfig configures retries of report storage calls.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts including the first.
	// Default: 3
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	// Default: 100ms
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between retries.
	// Default: 30s
	MaxBackoff time.Duration

	// BackoffMultiplier grows the backoff after each retry.
	// Default: 2.0
	BackoffMultiplier float64

	// Jitter is the fractional randomisation applied to each backoff.
	// Default: 0.1
	Jitter float64

	// RetryIf decides whether an error is retried. Nil retries everything.
	RetryIf func(error) bool
}

// DefaultRetryConfig returns the default retry settings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
	}
}

// Retryer runs storage operations with exponential backoff.
type Retryer struct {
	config RetryConfig
}

// NewRetryer fills unset fields with defaults.
func NewRetryer(config RetryConfig) *Retryer {
	def := DefaultRetryConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = def.InitialBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = def.MaxBackoff
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = def.BackoffMultiplier
	}
	if config.Jitter < 0 || config.Jitter > 1 {
		config.Jitter = def.Jitter
	}
	return &Retryer{config: config}
}

// RetryResult reports how many attempts ran and the final error.
type RetryResult struct {
	Attempts int
	LastErr  error
}

// Do executes op until it succeeds, a non-retryable error occurs, attempts
// run out or ctx is done.
func (r *Retryer) Do(ctx context.Context, op func() error) RetryResult {
	_, result := DoWithResult(ctx, r, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return result
}

// DoWithResult is Do for operations that produce a value.
func DoWithResult[T any](ctx context.Context, r *Retryer, op func() (T, error)) (T, RetryResult) {
	var zero T
	backoff := r.config.InitialBackoff

	for attempt := 1; ; attempt++ {
		v, err := op()
		if err == nil {
			return v, RetryResult{Attempts: attempt}
		}
		if r.config.RetryIf != nil && !r.config.RetryIf(err) {
			return zero, RetryResult{Attempts: attempt, LastErr: err}
		}
		if attempt >= r.config.MaxAttempts {
			return zero, RetryResult{Attempts: attempt, LastErr: err}
		}

		select {
		case <-ctx.Done():
			return zero, RetryResult{Attempts: attempt, LastErr: ctx.Err()}
		case <-time.After(r.addJitter(backoff)):
		}

		backoff = time.Duration(float64(backoff) * r.config.BackoffMultiplier)
		if backoff > r.config.MaxBackoff {
			backoff = r.config.MaxBackoff
		}
	}
}

func (r *Retryer) addJitter(d time.Duration) time.Duration {
	if r.config.Jitter == 0 {
		return d
	}
	jitterRange := float64(d) * r.config.Jitter
	return time.Duration(float64(d) + (rand.Float64()*2-1)*jitterRange)
}

var retryablePatterns = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"temporary failure",
	"service unavailable",
	"slow down",
	"too many requests",
	"rate limit",
	"503",
	"502",
	"504",
	"429",
}

// IsRetryable reports whether err looks transient. Missing keys and context
// errors never are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrNotExist) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
