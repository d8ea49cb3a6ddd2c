package embedding

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// DefaultMaxAPIBatchSize caps the inputs of a single backend request.
const DefaultMaxAPIBatchSize = 256

// InstrumentedEmbedder logs every backend call and splits large batches into
// requests of at most maxBatch inputs. Request metrics are recorded by the
// backends themselves.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	maxBatch int
	log      *zap.Logger
}

// NewInstrumentedEmbedder tags all log entries with provider and model.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:    inner,
		maxBatch: DefaultMaxAPIBatchSize,
		log:      logger.With(zap.String("provider", provider), zap.String("model", model)),
	}
}

// WithMaxBatch overrides the per-request input cap.
func (p *InstrumentedEmbedder) WithMaxBatch(n int) *InstrumentedEmbedder {
	if n > 0 {
		p.maxBatch = n
	}
	return p
}

// Embed delegates to the backend.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	res, err := p.inner.Embed(ctx, text)
	if err != nil {
		p.log.Warn("Embedding request failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.log.Debug("Embedding request completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("dimensions", len(res.Embedding)),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return res, nil
}

// BatchEmbed sends texts in chunks and stops at the first failing chunk.
// A chunk answered with the wrong number of vectors is an ErrEmbeddingFailure.
func (p *InstrumentedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	start := time.Now()
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}

	offset := 0
	for chunk := range slices.Chunk(texts, p.maxBatch) {
		res, err := domain.BatchEmbed(ctx, p.inner, chunk)
		if err == nil && len(res.Embeddings) != len(chunk) {
			err = fmt.Errorf("got %d vectors for %d texts: %w", len(res.Embeddings), len(chunk), domain.ErrEmbeddingFailure)
		}
		if err != nil {
			p.log.Warn("Batch embedding request failed",
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}

		out.Embeddings = append(out.Embeddings, res.Embeddings...)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
		offset += len(chunk)
	}

	if len(texts) > 0 {
		p.log.Debug("Batch embedding completed",
			zap.Duration("duration", time.Since(start)),
			zap.Int("batch_size", len(texts)),
			zap.Int("total_tokens", out.TotalTokens),
		)
	}
	return out, nil
}

// HealthCheck proxies the backend health check when it has one.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
