// Package hashing is an in-process embedder that maps text to a fixed-size
// vector by feature hashing of words and character trigrams. It needs no
// model or network, which makes it the backend of local runs and tests.
package hashing

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// DefaultDim is used when no dimension is configured.
const DefaultDim = 384

// Embedder is a deterministic feature-hashing embedder. Safe for concurrent use.
type Embedder struct {
	dim int
}

// New creates a hashing embedder. Non-positive dim falls back to DefaultDim.
func New(dim int) *Embedder {
	if dim <= 0 {
		dim = DefaultDim
	}
	return &Embedder{dim: dim}
}

// Dim returns the output dimension.
func (e *Embedder) Dim() int { return e.dim }

// Embed implements domain.Embedder. Output is not normalized.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, err
	}
	vec := make([]float32, e.dim)
	for _, tok := range features(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dim))
		// top bit picks the sign so collisions tend to cancel
		if sum>>63 == 1 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}
	return domain.EmbeddingResult{Embedding: vec}, nil
}

// BatchEmbed implements domain.BatchEmbedder.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, t := range texts {
		res, err := e.Embed(ctx, t)
		if err != nil {
			return domain.BatchEmbeddingResult{}, err
		}
		out.Embeddings[i] = res.Embedding
	}
	return out, nil
}

// HealthCheck always succeeds.
func (e *Embedder) HealthCheck(context.Context) error { return nil }

// features splits text into lowercase words and their padded character trigrams.
func features(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	out := make([]string, 0, len(words)*4)
	for _, w := range words {
		out = append(out, "w:"+w)
		runes := []rune("^" + w + "$")
		for i := 0; i+3 <= len(runes); i++ {
			out = append(out, "t:"+string(runes[i:i+3]))
		}
	}
	return out
}
