// Package retry runs an operation with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// Options configures one Do call.
type Options struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	BaseDelay  time.Duration
	// MaxDelay caps a single delay. Zero means uncapped.
	MaxDelay time.Duration
	// Retryable decides whether a failure may be retried. Nil retries every
	// failure.
	Retryable func(error) bool
	// Notify, when set, is called before each wait.
	Notify func(attempt int, err error, next time.Duration)
}

func DefaultOptions() Options {
	return Options{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
	}
}

// NewBackoff returns the delay sequence for opts: BaseDelay doubled on every
// retry, capped at MaxDelay, stopping after MaxRetries delays.
func NewBackoff(opts Options) goretry.Backoff {
	base := opts.BaseDelay
	if base <= 0 {
		base = DefaultOptions().BaseDelay
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	b := goretry.NewExponential(base)
	if opts.MaxDelay > 0 {
		b = goretry.WithCappedDuration(opts.MaxDelay, b)
	}
	return goretry.WithMaxRetries(uint64(maxRetries), b)
}

// Do calls op until it succeeds, it returns a non-retryable error, or the
// retries run out. The error of the last attempt is returned as is. Waiting
// between attempts respects ctx.
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts Options) (T, error) {
	var (
		result  T
		attempt int
		lastErr error
	)
	backoff := NewBackoff(opts)
	if opts.Notify != nil {
		inner := backoff
		backoff = goretry.BackoffFunc(func() (time.Duration, bool) {
			d, stop := inner.Next()
			if !stop {
				opts.Notify(attempt, lastErr, d)
			}
			return d, stop
		})
	}

	err := goretry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		v, err := op(ctx)
		if err != nil {
			lastErr = err
			if opts.Retryable != nil && !opts.Retryable(err) {
				return err
			}
			return goretry.RetryableError(err)
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

var retryableMarkers = []string{
	// network
	"network", "timeout", "econnrefused", "enotfound",
	// rate limiting
	"rate limit", "quota", "429",
	// transient upstream
	"502", "503", "504",
}

// IsRetryable reports whether err looks transient: network failures, rate
// limiting or a 502/503/504 from upstream.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range retryableMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
