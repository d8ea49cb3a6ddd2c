package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/repository/keyspace"
)

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder memoizes vectors per (model, text). Store failures degrade
// to a miss and are only logged; the inner embedder stays authoritative.
type CachedEmbedder struct {
	inner   domain.Embedder
	store   store
	keys    keyspace.Keyspace
	model   string
	ttl     time.Duration
	results *prometheus.CounterVec
	logger  *zap.Logger
}

// Options configures the cache.
type Options struct {
	Keys keyspace.Keyspace
	// Model namespaces entries so a model switch never serves stale vectors.
	Model string
	// TTL of cached vectors. Zero keeps them forever.
	TTL time.Duration
	// CacheTotal counts lookups by "result" label ("hit"/"miss").
	CacheTotal *prometheus.CounterVec
}

// New creates a caching decorator.
func New(inner domain.Embedder, s store, opts Options, logger *zap.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		inner:   inner,
		store:   s,
		keys:    opts.Keys,
		model:   opts.Model,
		ttl:     opts.TTL,
		results: opts.CacheTotal,
		logger:  logger,
	}
}

// Embed serves text from the cache or embeds and stores it. Hits report zero tokens.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)
	if vec, ok := c.lookup(ctx, key); ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	c.save(ctx, key, res.Embedding)
	return res, nil
}

// BatchEmbed embeds only the cache misses, in one inner batch call, and
// merges them back in input order.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}

	keys := make([]string, len(texts))
	var misses []int
	for i, text := range texts {
		keys[i] = c.cacheKey(text)
		if vec, ok := c.lookup(ctx, keys[i]); ok {
			out.Embeddings[i] = vec
		} else {
			misses = append(misses, i)
		}
	}
	if len(misses) == 0 {
		return out, nil
	}

	pending := make([]string, len(misses))
	for j, i := range misses {
		pending[j] = texts[i]
	}
	res, err := domain.BatchEmbed(ctx, c.inner, pending)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed %d texts: %w", len(pending), err)
	}
	if len(res.Embeddings) != len(pending) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: got %d vectors for %d texts: %w",
			len(res.Embeddings), len(pending), domain.ErrEmbeddingFailure)
	}

	for j, i := range misses {
		out.Embeddings[i] = res.Embeddings[j]
		c.save(ctx, keys[i], res.Embeddings[j])
	}
	out.PromptTokens, out.TotalTokens = res.PromptTokens, res.TotalTokens
	return out, nil
}

// cacheKey hashes model and text with a NUL separator so ("ab","c") and
// ("a","bc") never collide.
func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.New()
	h.Write([]byte(c.model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return c.keys.EmbeddingCache(hex.EncodeToString(h.Sum(nil)))
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	vec, err := c.load(ctx, key)
	switch {
	case err == nil && len(vec) > 0:
		c.count("hit")
		return vec, true
	case err != nil && !errors.Is(err, db.ErrKeyNotFound):
		c.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
	}
	c.count("miss")
	return nil, false
}

func (c *CachedEmbedder) load(ctx context.Context, key string) ([]float32, error) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return decodeVector(data)
}

func (c *CachedEmbedder) save(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	data := encodeVector(vec)
	var err error
	if c.ttl > 0 {
		err = c.store.SetWithTTL(ctx, key, data, c.ttl)
	} else {
		err = c.store.Set(ctx, key, data)
	}
	if err != nil {
		c.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedEmbedder) count(result string) {
	if c.results != nil {
		c.results.WithLabelValues(result).Inc()
	}
}

// Vectors are cached in the same little-endian FLOAT32 layout the search
// module reads from query params.
func encodeVector(v []float32) []byte {
	return []byte(rueidis.VectorString32(v))
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("corrupt cache entry: %d bytes is not a FLOAT32 vector", len(data))
	}
	return rueidis.ToVector32(string(data)), nil
}
