package embedding

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/retry"
)

// RetryingEmbedder retries transient backend failures with backoff.
// Errors marked retry.Permanent (provider 4xx) fail on the first attempt.
type RetryingEmbedder struct {
	inner  domain.Embedder
	policy retry.Policy
}

// NewRetryingEmbedder wraps inner with a retry policy.
func NewRetryingEmbedder(inner domain.Embedder, policy retry.Policy) *RetryingEmbedder {
	return &RetryingEmbedder{inner: inner, policy: policy}
}

// Embed implements domain.Embedder.
func (r *RetryingEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	var out domain.EmbeddingResult
	err := retry.Do(ctx, r.policy, func(ctx context.Context) error {
		res, err := r.inner.Embed(ctx, text)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	return out, err
}

// BatchEmbed implements domain.BatchEmbedder. The whole batch is retried.
func (r *RetryingEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	var out domain.BatchEmbeddingResult
	err := retry.Do(ctx, r.policy, func(ctx context.Context) error {
		res, err := domain.BatchEmbed(ctx, r.inner, texts)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	return out, err
}

// HealthCheck proxies the inner health check when it has one.
func (r *RetryingEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := r.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
