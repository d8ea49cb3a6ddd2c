package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/vector"
)

// DefaultMaxInputRunes is roughly 512 tokens for multilingual models.
const DefaultMaxInputRunes = 2048

// NormalizedEmbedder is the outermost embedder: it owns the input and output
// contract every caller relies on.
//
//   - blank text yields the zero vector without a backend call
//   - the instruction is prepended, then the whole input is cut to maxRunes runes, never rejected
//   - vectors of the wrong dimension fail with ErrEmbeddingFailure
//   - vectors are L2-normalized; a zero vector stays zero
type NormalizedEmbedder struct {
	inner       domain.Embedder
	dim         int
	maxRunes    int
	instruction string
}

// NewNormalizedEmbedder wraps inner. dim is the probed deployment dimension.
// Non-positive maxRunes falls back to DefaultMaxInputRunes.
func NewNormalizedEmbedder(inner domain.Embedder, dim, maxRunes int) *NormalizedEmbedder {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxInputRunes
	}
	return &NormalizedEmbedder{inner: inner, dim: dim, maxRunes: maxRunes}
}

// WithInstruction sets the prefix ("query: ", "passage: ") the model expects
// in front of every text. It counts toward the rune budget.
func (n *NormalizedEmbedder) WithInstruction(instruction string) *NormalizedEmbedder {
	n.instruction = instruction
	return n
}

// Dim returns the output dimension.
func (n *NormalizedEmbedder) Dim() int { return n.dim }

// Embed implements domain.Embedder.
func (n *NormalizedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.EmbeddingResult{Embedding: vector.Zero(n.dim)}, nil
	}

	res, err := n.inner.Embed(ctx, n.input(text))
	if err != nil {
		return domain.EmbeddingResult{}, asEmbeddingFailure(err)
	}
	if err := n.checkDim(len(res.Embedding)); err != nil {
		return domain.EmbeddingResult{}, err
	}
	res.Embedding = vector.Normalize(res.Embedding)
	return res, nil
}

// BatchEmbed implements domain.BatchEmbedder. Blank texts never reach the backend.
func (n *NormalizedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}

	idx := make([]int, 0, len(texts))
	send := make([]string, 0, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			out.Embeddings[i] = vector.Zero(n.dim)
			continue
		}
		idx = append(idx, i)
		send = append(send, n.input(t))
	}
	if len(send) == 0 {
		return out, nil
	}

	res, err := domain.BatchEmbed(ctx, n.inner, send)
	if err != nil {
		return domain.BatchEmbeddingResult{}, asEmbeddingFailure(err)
	}
	if len(res.Embeddings) != len(send) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("got %d vectors for %d texts: %w",
			len(res.Embeddings), len(send), domain.ErrEmbeddingFailure)
	}

	for j, i := range idx {
		if err := n.checkDim(len(res.Embeddings[j])); err != nil {
			return domain.BatchEmbeddingResult{}, err
		}
		out.Embeddings[i] = vector.Normalize(res.Embeddings[j])
	}
	out.PromptTokens = res.PromptTokens
	out.TotalTokens = res.TotalTokens
	return out, nil
}

// HealthCheck proxies the inner health check when it has one.
func (n *NormalizedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := n.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (n *NormalizedEmbedder) input(text string) string {
	return vector.TruncateRunes(n.instruction+text, n.maxRunes)
}

func (n *NormalizedEmbedder) checkDim(got int) error {
	if n.dim > 0 && got != n.dim {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingFailure,
			domain.NewDimMismatch("embedding output", n.dim, got))
	}
	return nil
}

func asEmbeddingFailure(err error) error {
	if errors.Is(err, domain.ErrEmbeddingFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbeddingFailure, err)
}
