package haunt

import (
	"context"
	"time"

	"github.com/thywilljoshua/haunted-syllabus/internal/ai"
	"github.com/thywilljoshua/haunted-syllabus/internal/logger"
	"github.com/thywilljoshua/haunted-syllabus/internal/metrics"
	"github.com/thywilljoshua/haunted-syllabus/internal/retry"
)

// retrying runs every call of the wrapped generator under the retry
// controller, counting calls and retries.
type retrying struct {
	gen     ai.Generator
	opts    retry.Options
	metrics *metrics.Metrics
}

var _ ai.Generator = (*retrying)(nil)

func (r *retrying) options(ctx context.Context, op string) retry.Options {
	opts := r.opts
	if opts.Retryable == nil {
		opts.Retryable = retry.IsRetryable
	}
	log := logger.FromContext(ctx)
	opts.Notify = func(attempt int, err error, next time.Duration) {
		r.metrics.RecordRetry()
		log.Warn("Generator call failed, retrying", "op", op, "attempt", attempt, "next", next, "error", err)
	}
	return opts
}

func (r *retrying) Haunt(ctx context.Context, text string) (string, error) {
	return retry.Do(ctx, func(ctx context.Context) (string, error) {
		out, err := r.gen.Haunt(ctx, text)
		r.metrics.RecordAICall("haunt", err)
		return out, err
	}, r.options(ctx, "haunt"))
}

func (r *retrying) ExtractSyllabus(ctx context.Context, image []byte, mimeType string) (ai.Syllabus, error) {
	return retry.Do(ctx, func(ctx context.Context) (ai.Syllabus, error) {
		s, err := r.gen.ExtractSyllabus(ctx, image, mimeType)
		r.metrics.RecordAICall("syllabus", err)
		return s, err
	}, r.options(ctx, "syllabus"))
}

func (r *retrying) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	return retry.Do(ctx, func(ctx context.Context) (string, error) {
		out, err := r.gen.ExtractText(ctx, data, mimeType)
		r.metrics.RecordAICall("transcribe", err)
		return out, err
	}, r.options(ctx, "transcribe"))
}
