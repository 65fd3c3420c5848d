package source

import (
	"context"
	"log/slog"

	"mashup/internal/logging"
	"mashup/internal/mashup"
	"mashup/internal/services"
)

type retrying struct {
	inner  MediaSource
	policy services.RetryPolicy
	logger *slog.Logger
}

// WithRetry wraps src so every Search and Fetch call is retried under policy.
// Only retryable failures (see services.IsRetryable) are repeated.
func WithRetry(src MediaSource, policy services.RetryPolicy, logger *slog.Logger) MediaSource {
	return &retrying{inner: src, policy: policy, logger: logging.NewComponentLogger(logger, "source")}
}

func (r *retrying) Search(ctx context.Context, query string, limit int) ([]mashup.Candidate, error) {
	var out []mashup.Candidate
	err := r.withPolicy(ctx, "search", logging.String("query", query)).Do(ctx, "search", func(ctx context.Context) error {
		var err error
		out, err = r.inner.Search(ctx, query, limit)
		return err
	})
	return out, err
}

func (r *retrying) Fetch(ctx context.Context, locator, destDir, baseName string) (string, error) {
	var path string
	err := r.withPolicy(ctx, "fetch", logging.String("locator", locator)).Do(ctx, "fetch", func(ctx context.Context) error {
		var err error
		path, err = r.inner.Fetch(ctx, locator, destDir, baseName)
		return err
	})
	return path, err
}

func (r *retrying) withPolicy(ctx context.Context, op string, attrs ...logging.Attr) services.RetryPolicy {
	policy := r.policy
	logger := logging.WithContext(ctx, r.logger)
	policy.OnRetry = func(attempt int, err error) {
		fields := append([]logging.Attr{
			logging.String("operation", op),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", policy.Attempts()),
			logging.Duration("retry_in", policy.Delay),
			logging.Error(err),
			logging.String(logging.FieldImpact, "request delayed while the source recovers"),
		}, attrs...)
		logging.WarnWithContext(logger, "media source call failed; retrying", "source_retry", fields...)
	}
	return policy
}
