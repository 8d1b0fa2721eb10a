package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig configures retry behavior for reasoning-service calls.
type RetryConfig struct {
	MaxRetries int           // Maximum number of retry attempts (0 = no retries)
	RetryDelay time.Duration // Initial delay between retries
	MaxDelay   time.Duration // Maximum delay between retries (caps exponential backoff)
	Timeout    time.Duration // Per-attempt timeout

	// OnRetry, when set, is called before each retry with the attempt that
	// failed (1-based), its error and the delay before the next attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig allows one retry with a one-minute attempt timeout.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 1,
		RetryDelay: 2 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    time.Minute,
	}
}

// RetryError reports that every attempt failed.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("max retries (%d) exceeded: %v", e.Attempts-1, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

// Do runs op until it succeeds, fails permanently, or the retry budget is
// spent. Each attempt runs under its own timeout derived from ctx. Errors for
// which IsRetryable is false stop immediately, as does cancellation of ctx.
func Do[T any](ctx context.Context, cfg *RetryConfig, op func(ctx context.Context) (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.RetryDelay
	if cfg.MaxDelay > 0 {
		b.MaxInterval = cfg.MaxDelay
	}

	attempts := 0
	operation := func() (T, error) {
		attempts++
		attemptCtx, cancel := context.WithCancel(ctx)
		if cfg.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		}
		defer cancel()

		res, err := op(attemptCtx)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return res, backoff.Permanent(ctx.Err())
		}
		if !IsRetryable(err) {
			return res, backoff.Permanent(fmt.Errorf("non-retryable error: %w", err))
		}
		return res, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(cfg.MaxRetries + 1)),
		backoff.WithMaxElapsedTime(0),
	}
	if cfg.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(func(err error, delay time.Duration) {
			cfg.OnRetry(attempts, err, delay)
		}))
	}

	res, err := backoff.Retry(ctx, operation, opts...)
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return res, perm.Unwrap()
	}
	if !IsRetryable(err) {
		return res, err
	}
	return res, &RetryError{Attempts: attempts, Err: err}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are not retryable (caller cancelled)
	if errors.Is(err, context.Canceled) {
		return false
	}

	// Timeout errors are retryable
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Errors that classify themselves take precedence over message matching
	var classified interface{ Retryable() bool }
	if errors.As(err, &classified) {
		return classified.Retryable()
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return retryableStatus(statusErr.StatusCode, statusErr.Body)
	}

	// Network errors are generally retryable
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Check for specific HTTP status codes in error message
	errStr := err.Error()

	// Rate limiting (429) - retryable, UNLESS it's a daily token limit (TPD)
	if strings.Contains(errStr, "429") || strings.Contains(errStr, "Too Many Requests") {
		return !isDailyQuota(errStr)
	}

	// Server errors (5xx) - retryable
	for _, code := range []int{500, 502, 503, 504} {
		if strings.Contains(errStr, fmt.Sprint(code)) || strings.Contains(errStr, http.StatusText(code)) {
			return true
		}
	}

	// Client errors (4xx except 429) - not retryable
	for _, code := range []string{"400", "401", "403", "404"} {
		if strings.Contains(errStr, code) {
			return false
		}
	}

	// Default: retry on unknown errors, which includes malformed responses
	return true
}

func retryableStatus(code int, body string) bool {
	switch {
	case code == http.StatusTooManyRequests:
		return !isDailyQuota(body)
	case code >= 500:
		return true
	case code == http.StatusRequestTimeout:
		return true
	default:
		return false
	}
}

// Daily token limits (TPD) won't reset with retries.
func isDailyQuota(s string) bool {
	return strings.Contains(s, "tokens per day") || strings.Contains(s, "TPD")
}
