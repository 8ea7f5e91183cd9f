package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flaky fails the first n calls with errFlaky.
type flaky struct {
	failures int
	calls    int
}

var errFlaky = errors.New("503 service unavailable")

func (f *flaky) call(context.Context) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errFlaky
	}
	return "ok", nil
}

func fast(maxRetries int) Options {
	return Options{MaxRetries: maxRetries, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestDo(t *testing.T) {
	t.Run("Should return immediately on success", func(t *testing.T) {
		f := &flaky{}
		got, err := Do(t.Context(), f.call, fast(3))
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, 1, f.calls)
	})

	t.Run("Should succeed after F failures when F is within the budget", func(t *testing.T) {
		for r := 0; r <= 4; r++ {
			for failures := 0; failures <= r; failures++ {
				f := &flaky{failures: failures}
				got, err := Do(t.Context(), f.call, fast(r))
				require.NoError(t, err)
				assert.Equal(t, "ok", got)
				assert.Equal(t, failures+1, f.calls, "R=%d F=%d", r, failures)
			}
		}
	})

	t.Run("Should fail after R+1 calls with the original error", func(t *testing.T) {
		for r := 0; r <= 3; r++ {
			f := &flaky{failures: r + 1}
			_, err := Do(t.Context(), f.call, fast(r))
			require.Error(t, err)
			assert.Same(t, errFlaky, err)
			assert.Equal(t, r+1, f.calls)
		}
	})

	t.Run("Should wait base plus double base before giving up", func(t *testing.T) {
		calls := 0
		start := time.Now()
		_, err := Do(t.Context(), func(context.Context) (int, error) {
			calls++
			return 0, errors.New("always")
		}, Options{MaxRetries: 2, BaseDelay: 10 * time.Millisecond})
		elapsed := time.Since(start)
		require.EqualError(t, err, "always")
		assert.Equal(t, 3, calls)
		assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	})

	t.Run("Should stop on errors the caller marks as permanent", func(t *testing.T) {
		calls := 0
		permanent := errors.New("invalid argument")
		_, err := Do(t.Context(), func(context.Context) (int, error) {
			calls++
			return 0, permanent
		}, Options{MaxRetries: 5, BaseDelay: time.Millisecond, Retryable: IsRetryable})
		assert.Same(t, permanent, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("Should report each wait", func(t *testing.T) {
		type wait struct {
			attempt int
			delay   time.Duration
		}
		var waits []wait
		f := &flaky{failures: 3}
		opts := Options{
			MaxRetries: 3,
			BaseDelay:  time.Millisecond,
			Notify: func(attempt int, err error, next time.Duration) {
				assert.Same(t, errFlaky, err)
				waits = append(waits, wait{attempt, next})
			},
		}
		_, err := Do(t.Context(), f.call, opts)
		require.NoError(t, err)
		assert.Equal(t, []wait{{1, time.Millisecond}, {2, 2 * time.Millisecond}, {3, 4 * time.Millisecond}}, waits)
	})

	t.Run("Should give up waiting when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		calls := 0
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		start := time.Now()
		_, err := Do(ctx, func(context.Context) (int, error) {
			calls++
			return 0, errFlaky
		}, Options{MaxRetries: 3, BaseDelay: time.Hour})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
		assert.Less(t, time.Since(start), time.Minute)
	})
}

func TestNewBackoff(t *testing.T) {
	t.Run("Should double the delay and respect the cap", func(t *testing.T) {
		b := NewBackoff(Options{MaxRetries: 5, BaseDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond})
		var got []time.Duration
		for {
			d, stop := b.Next()
			if stop {
				break
			}
			got = append(got, d)
		}
		want := []time.Duration{10, 20, 40, 50, 50}
		for i := range want {
			want[i] *= time.Millisecond
		}
		assert.Equal(t, want, got)
	})

	t.Run("Should leave delays uncapped without a maximum", func(t *testing.T) {
		b := NewBackoff(Options{MaxRetries: 4, BaseDelay: time.Second})
		for i := 0; i < 4; i++ {
			d, stop := b.Next()
			require.False(t, stop)
			assert.Equal(t, time.Second<<i, d)
		}
		_, stop := b.Next()
		assert.True(t, stop)
	})

	t.Run("Should stop at once when no retries are allowed", func(t *testing.T) {
		_, stop := NewBackoff(Options{MaxRetries: -1, BaseDelay: time.Second}).Next()
		assert.True(t, stop)
	})
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o deadline" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("Network unreachable"), true},
		{errors.New("request TIMEOUT"), true},
		{errors.New("dial tcp: ECONNREFUSED"), true},
		{errors.New("getaddrinfo ENOTFOUND api"), true},
		{errors.New("Rate limit exceeded"), true},
		{errors.New("quota exhausted"), true},
		{errors.New("Error 429, Message: slow down"), true},
		{errors.New("bad gateway 502"), true},
		{errors.New("503"), true},
		{errors.New("504 gateway timeout"), true},
		{fmt.Errorf("generate: %w", errors.New("status 503")), true},
		{timeoutErr{}, true},
		{errors.New("invalid api key"), false},
		{errors.New("400 bad request"), false},
	}
	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
