package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/leofalp/jsontunnel/internal/utils"
)

// RetryConfig tunes the retry middleware. Zero values are replaced by the
// defaults noted on each field.
//
// These retries cover transport failures of a single model call. They are
// independent of the tunnel's corrective attempts, which happen only after a
// call succeeded with unusable output.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first call. Default 3.
	MaxRetries int

	// InitialBackoff is the wait before the first retry. Default 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the computed wait. Default 30s.
	MaxBackoff time.Duration

	// BackoffFactor multiplies the wait on each retry. Default 2.
	BackoffFactor float64

	// JitterFraction adds up to this fraction of the wait at random.
	// Default 0.1.
	JitterFraction float64

	// RetryableFunc reports whether err is worth retrying. Default:
	// IsRetryable.
	RetryableFunc func(error) bool
}

// retryableStatus lists the HTTP statuses treated as transient.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	529:                            true, // overloaded
}

// IsRetryable reports whether err is a transient failure: a *utils.StatusError
// with status 429, 500, 502, 503 or 529, or an error whose text names one of
// those statuses. Context errors are never retryable.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *utils.StatusError
	if errors.As(err, &statusErr) {
		return retryableStatus[statusErr.StatusCode]
	}

	msg := err.Error()
	for code := range retryableStatus {
		if strings.Contains(msg, fmt.Sprintf("status %d", code)) {
			return true
		}
	}
	return false
}

func applyRetryDefaults(config *RetryConfig) {
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.BackoffFactor == 0 {
		config.BackoffFactor = 2.0
	}
	if config.JitterFraction == 0 {
		config.JitterFraction = 0.1
	}
	if config.RetryableFunc == nil {
		config.RetryableFunc = IsRetryable
	}
}

// computeBackoff returns min(InitialBackoff * BackoffFactor^attempt,
// MaxBackoff) plus jitter, for a zero-based retry index.
func computeBackoff(config RetryConfig, attempt int) time.Duration {
	base := float64(config.InitialBackoff) * math.Pow(config.BackoffFactor, float64(attempt))
	if base > float64(config.MaxBackoff) {
		base = float64(config.MaxBackoff)
	}

	jitter := base * config.JitterFraction * rand.Float64() //nolint:gosec // jitter needs no crypto randomness
	return time.Duration(base + jitter)
}

// Retry re-sends a prompt after retryable failures with exponential
// backoff. Non-retryable errors are returned at once; waiting stops when ctx
// is done. Streams are not covered because a half-read stream cannot be
// replayed.
func Retry(config RetryConfig) Middleware {
	applyRetryDefaults(&config)

	return func(next CompleteFunc) CompleteFunc {
		return func(ctx context.Context, prompt string) (string, error) {
			var lastErr error
			for attempt := 0; attempt <= config.MaxRetries; attempt++ {
				if attempt > 0 {
					timer := time.NewTimer(computeBackoff(config, attempt-1))
					select {
					case <-ctx.Done():
						timer.Stop()
						return "", ctx.Err()
					case <-timer.C:
					}
				}

				text, err := next(ctx, prompt)
				if err == nil {
					return text, nil
				}
				lastErr = err
				if !config.RetryableFunc(err) {
					return "", err
				}
			}
			return "", fmt.Errorf("%w after %d retries: %w", ErrRetryExhausted, config.MaxRetries, lastErr)
		}
	}
}
