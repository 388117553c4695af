package ingest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// MaxRetryAttempts bounds the exponential backoff retry loop for transient
// fetch failures (§4.1: "retry with exponential backoff, capped at N
// attempts").
const MaxRetryAttempts = 5

// NewRetryableHTTPClient returns an *http.Client backed by
// go-retryablehttp's exponential-backoff policy, used for any provider
// whose SDK accepts a custom http.Client (the GitHub SDK does; the GitLab
// SDK wraps its own transport and is paced by RateGovernor directly
// instead).
func NewRetryableHTTPClient(logger *slog.Logger) *http.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = cleanhttp.DefaultPooledClient()
	rc.RetryMax = MaxRetryAttempts
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 30 * time.Second
	if logger != nil {
		rc.Logger = retryableHTTPLoggerAdapter{logger: logger}
	} else {
		rc.Logger = nil
	}
	rc.CheckRetry = retryablehttp.DefaultRetryPolicy
	return rc.StandardClient()
}

// retryableHTTPLoggerAdapter bridges go-retryablehttp's printf-style
// LeveledLogger interface to slog.
type retryableHTTPLoggerAdapter struct {
	logger *slog.Logger
}

func (a retryableHTTPLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, keysAndValues...)
}
func (a retryableHTTPLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug(msg, keysAndValues...)
}
func (a retryableHTTPLoggerAdapter) Debug(msg string, keysAndValues ...interface{}) {
	a.logger.Debug(msg, keysAndValues...)
}
func (a retryableHTTPLoggerAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.logger.Warn(msg, keysAndValues...)
}

// ClassifyHTTPStatus maps an HTTP status code to the §4.1 failure-semantics
// table: 401/403/404 and other 4xx (except 429) are permanent; 429 and 5xx
// are transient and should be retried after yielding to RateGovernor.
func ClassifyHTTPStatus(status int) (permanent bool) {
	if status == http.StatusTooManyRequests {
		return false
	}
	if status >= 400 && status < 500 {
		return true
	}
	return false
}

// WithRetry runs fn up to MaxRetryAttempts times with exponential backoff,
// honoring ctx cancellation. Any error for which isPermanent reports true
// is returned immediately without a retry; after the last attempt the
// final error is returned as-is.
func WithRetry(ctx context.Context, isPermanent func(error) bool, fn func() error) error {
	wait := 500 * time.Millisecond
	const maxWait = 30 * time.Second

	var lastErr error
	for attempt := 0; attempt < MaxRetryAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if isPermanent(err) {
			return err
		}
		if attempt == MaxRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		wait *= 2
		if wait > maxWait {
			wait = maxWait
		}
	}
	return lastErr
}

// errIsContextDone reports whether err is (or wraps) context cancellation,
// which should never be masked as a transient provider failure.
func errIsContextDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
