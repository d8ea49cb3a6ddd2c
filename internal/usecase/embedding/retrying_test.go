package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/retry"
)

var fastPolicy = retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestRetryingEmbedder_RecoversFromTransientFailure(t *testing.T) {
	inner := &mockEmbedder{}
	inner.embedFn = func(context.Context, string) (domain.EmbeddingResult, error) {
		if inner.embedCalls < 3 {
			return domain.EmbeddingResult{}, errors.New("connection reset")
		}
		return domain.EmbeddingResult{Embedding: []float32{1}}, nil
	}

	res, err := NewRetryingEmbedder(inner, fastPolicy).Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, res.Embedding)
	assert.Equal(t, 3, inner.embedCalls)
}

func TestRetryingEmbedder_PermanentFailsOnce(t *testing.T) {
	inner := &mockEmbedder{embedFn: func(context.Context, string) (domain.EmbeddingResult, error) {
		return domain.EmbeddingResult{}, retry.Permanent(domain.ErrEmbeddingFailure)
	}}

	_, err := NewRetryingEmbedder(inner, fastPolicy).Embed(context.Background(), "x")
	require.ErrorIs(t, err, domain.ErrEmbeddingFailure)
	assert.Equal(t, 1, inner.embedCalls)
}

func TestRetryingEmbedder_BatchExhaustsAttempts(t *testing.T) {
	inner := &mockEmbedder{batchEmbedFn: func(context.Context, []string) (domain.BatchEmbeddingResult, error) {
		return domain.BatchEmbeddingResult{}, domain.ErrEmbeddingFailure
	}}

	_, err := NewRetryingEmbedder(inner, fastPolicy).BatchEmbed(context.Background(), []string{"a", "b"})
	require.ErrorIs(t, err, domain.ErrEmbeddingFailure)
	assert.Equal(t, 3, inner.batchCalls)
}
