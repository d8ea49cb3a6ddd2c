package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/config"
	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/metrics"
	"github.com/kailas-cloud/semsearch/internal/repository/embcache"
	"github.com/kailas-cloud/semsearch/internal/repository/keyspace"
	"github.com/kailas-cloud/semsearch/internal/retry"
	"github.com/kailas-cloud/semsearch/internal/transport/hashing"
	"github.com/kailas-cloud/semsearch/internal/transport/langchain"
	openaiEmb "github.com/kailas-cloud/semsearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/semsearch/internal/usecase/embedding"
)

// backend is an embedding provider that can report its availability.
type backend interface {
	domain.Embedder
	domain.HealthChecker
}

// Embedders are the views of the one embedding model the services need.
type Embedders struct {
	// Query prefixes the query instruction and normalizes.
	Query *embeddinguc.NormalizedEmbedder
	// Document prefixes the document instruction and normalizes.
	Document *embeddinguc.NormalizedEmbedder
	// Raw normalizes without an instruction. It backs /embed and the startup probe.
	Raw *embeddinguc.NormalizedEmbedder
	// Health checks the backend, bypassing the cache.
	Health domain.HealthChecker
}

// newBackend selects the provider configured in cfg.
func newBackend(cfg config.EmbeddingConfig, logger *zap.Logger) (backend, error) {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	switch cfg.Provider {
	case "openai":
		return openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Provider,
			Timeout:    timeout,
			Logger:     logger,
		}), nil
	case "ollama":
		return langchain.NewOllama(langchainConfig(cfg, logger))
	case "langchain-openai":
		return langchain.NewOpenAI(langchainConfig(cfg, logger))
	case "hashing":
		dim := cfg.Dimensions
		if dim <= 0 {
			dim = hashing.DefaultDim
		}
		return hashing.New(dim), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

func langchainConfig(cfg config.EmbeddingConfig, logger *zap.Logger) langchain.Config {
	return langchain.Config{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		BatchSize: cfg.MaxBatchSize,
		Logger:    logger,
	}
}

// buildEmbedders assembles the decorator chain:
//
//	backend -> Instrumented -> Retrying -> Cached -> Normalized(+instruction)
//
// Normalized prepends the instruction before truncating, so the backend never
// sees more than max_input_chars runes. Cache keys include the prefix.
// A nil store disables caching.
func buildEmbedders(
	b backend, cfg config.EmbeddingConfig, dim int,
	store cacheStore, keys keyspace.Keyspace, logger *zap.Logger,
) Embedders {
	instrumented := embeddinguc.NewInstrumentedEmbedder(b, cfg.Provider, cfg.Model, logger).
		WithMaxBatch(cfg.MaxBatchSize)
	var base domain.Embedder = embeddinguc.NewRetryingEmbedder(instrumented, retryPolicy(cfg.Retry))

	if store != nil && cfg.Cache.Enabled {
		base = embcache.New(base, store, embcache.Options{
			Keys:       keys,
			Model:      cfg.Provider + "/" + cfg.Model,
			TTL:        time.Duration(cfg.Cache.TTLSec) * time.Second,
			CacheTotal: metrics.EmbeddingCacheTotal,
		}, logger)
	}

	normalized := func(instruction string) *embeddinguc.NormalizedEmbedder {
		return embeddinguc.NewNormalizedEmbedder(base, dim, cfg.MaxInputChars).WithInstruction(instruction)
	}

	return Embedders{
		Query:    normalized(cfg.QueryInstruction),
		Document: normalized(cfg.DocumentInstruction),
		Raw:      normalized(""),
		Health:   instrumented,
	}
}

func retryPolicy(c config.RetryConfig) retry.Policy {
	return retry.Policy{
		MaxAttempts: c.MaxAttempts,
		BaseDelay:   time.Duration(c.BaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.MaxDelayMs) * time.Millisecond,
	}
}
