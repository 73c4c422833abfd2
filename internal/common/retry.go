package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrRateLimit means the export destination throttled the request.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries wraps the last error once every attempt has failed.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryOptions configures backoff for export uploads. List fetches and
// payment calls are never retried automatically; the user retries them.
type RetryOptions struct {
	Logger       *slog.Logger
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// ExportRetry is the backoff used by the Sheets and S3 sinks.
var ExportRetry = RetryOptions{
	MaxAttempts:  3,
	InitialDelay: time.Second,
	MaxDelay:     30 * time.Second,
	Multiplier:   2.0,
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = ExportRetry.MaxAttempts
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = 100 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = ExportRetry.MaxDelay
	}
	if o.Multiplier <= 0 {
		o.Multiplier = ExportRetry.Multiplier
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// RetryableError marks an error as worth (or not worth) another attempt,
// overriding IsRetryable.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// final reports whether err rules out another attempt. Unclassified errors
// are retried.
func final(err error) bool {
	if IsRetryable(err) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}

	var marked *RetryableError
	if errors.As(err, &marked) {
		return !marked.Retryable
	}

	var (
		validation *ValidationError
		expired    *AuthExpired
		rejection  *ServerRejection
	)
	return errors.As(err, &validation) ||
		errors.As(err, &expired) ||
		errors.As(err, &rejection) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrMissingConfig)
}

// WithRetry runs operation until it succeeds, fails with a final error, or
// runs out of attempts.
func WithRetry(ctx context.Context, operation func() error, opts RetryOptions) error {
	opts = opts.withDefaults()
	delay := opts.InitialDelay

	for attempt := 1; ; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		if final(err) {
			return err
		}
		if attempt >= opts.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, opts.MaxAttempts, err)
		}

		if errors.Is(err, ErrRateLimit) {
			delay = opts.MaxDelay
		}

		opts.Logger.Warn("upload failed, retrying",
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(time.Duration(float64(delay)*opts.Multiplier), opts.MaxDelay)
	}
}
