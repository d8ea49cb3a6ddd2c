package embedding

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

type mockEmbedder struct {
	embedFn      func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	batchEmbedFn func(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
	healthFn     func(ctx context.Context) error

	embedCalls int
	batchCalls int
	texts      []string
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.embedCalls++
	m.texts = append(m.texts, text)
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{3, 4}}, nil
}

func (m *mockEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.texts = append(m.texts, texts...)
	if m.batchEmbedFn != nil {
		return m.batchEmbedFn(ctx, texts)
	}
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i := range texts {
		out.Embeddings[i] = []float32{3, 4}
		out.TotalTokens++
	}
	return out, nil
}

func (m *mockEmbedder) HealthCheck(ctx context.Context) error {
	if m.healthFn != nil {
		return m.healthFn(ctx)
	}
	return nil
}

// singleOnly hides BatchEmbed so callers fall back to per-text calls.
type singleOnly struct {
	inner *mockEmbedder
}

func (s singleOnly) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return s.inner.Embed(ctx, text)
}
