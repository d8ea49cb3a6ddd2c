// Package app is the composition root shared by the gateway and the ingest CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/config"
	"github.com/kailas-cloud/semsearch/internal/db"
	dbRedis "github.com/kailas-cloud/semsearch/internal/db/redis"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/domain/search/request"
	"github.com/kailas-cloud/semsearch/internal/metrics"
	collectionrepo "github.com/kailas-cloud/semsearch/internal/repository/collection"
	"github.com/kailas-cloud/semsearch/internal/repository/keyspace"
	searchrepo "github.com/kailas-cloud/semsearch/internal/repository/search"
	chiTransport "github.com/kailas-cloud/semsearch/internal/transport/chi"
	collectionuc "github.com/kailas-cloud/semsearch/internal/usecase/collection"
	embeddinguc "github.com/kailas-cloud/semsearch/internal/usecase/embedding"
	fanoutuc "github.com/kailas-cloud/semsearch/internal/usecase/fanout"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

// cacheStore is what the embedding cache needs from the store.
type cacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options are startup switches.
type Options struct {
	// SkipDimensionCheck tolerates collections built for another dimension.
	// Only the destructive recreate path sets it.
	SkipDimensionCheck bool
}

// Context holds the wired services. Build it with New and release it with Close.
type Context struct {
	Config   config.Config
	Logger   *zap.Logger
	Store    *dbRedis.Store
	Keys     keyspace.Keyspace
	Registry *entity.Registry
	// Dim is the probed embedding dimension.
	Dim       int
	Embedders Embedders

	CollectionRepo *collectionrepo.Repo
	Collections    *collectionuc.Service
	Search         *searchuc.Service
	Fanout         *fanoutuc.Service
	Health         *healthuc.Service
}

// New builds the service context in dependency order: embedding backend,
// dimension probe, store connection, entity registry, services.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (*Context, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	b, err := newBackend(cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("embedding backend: %w", err)
	}
	dim, err := embeddinguc.Probe(ctx, b, cfg.Embedding.ProbeText)
	if err != nil {
		return nil, fmt.Errorf("embedding probe: %w", err)
	}
	if err := embeddinguc.VerifyDimension(cfg.Embedding.Dimensions, dim); err != nil {
		return nil, fmt.Errorf("embedding probe: %w", err)
	}
	logger.Info("Embedding model ready",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", dim),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:       cfg.Database.Addrs,
		Username:    cfg.Database.Username,
		Password:    cfg.Database.Password,
		DB:          cfg.Database.DB,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		store.Close()
		return nil, fmt.Errorf("store not ready: %w", err)
	}
	logger.Info("Connected to vector store", zap.Strings("addrs", cfg.Database.Addrs))

	c := &Context{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Keys:   keyspace.New(cfg.Storage.KeyPrefix),
		Dim:    dim,
	}
	if err := c.wire(ctx, b, opts); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Context) wire(ctx context.Context, b backend, opts Options) error {
	cfg := c.Config

	registry, err := entity.NewRegistry(cfg.EntityOverrides())
	if err != nil {
		return fmt.Errorf("entity registry: %w", err)
	}
	c.Registry = registry

	c.CollectionRepo = collectionrepo.New(c.Store, c.Keys).WithIndex(collectionrepo.IndexConfig{
		Algorithm:   db.VectorAlgorithm(cfg.Index.Algorithm),
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})
	c.Collections = collectionuc.New(c.CollectionRepo)
	if !opts.SkipDimensionCheck {
		if err := c.Collections.VerifyDimensions(ctx, registry.Collections(), c.Dim); err != nil {
			return fmt.Errorf("verify collections: %w", err)
		}
	}

	var cache cacheStore
	if cfg.Embedding.Cache.Enabled {
		cache = c.Store
	}
	c.Embedders = buildEmbedders(b, cfg.Embedding, c.Dim, cache, c.Keys, c.Logger)

	c.Search = searchuc.New(registry, c.Embedders.Query, searchrepo.New(c.Store, c.Keys), searchuc.Options{
		Limits: request.Limits{
			Default:        cfg.Search.DefaultLimit,
			Max:            cfg.Search.MaxLimit,
			MaxQueryLength: cfg.Search.MaxQueryLength,
		},
		DefaultRadius: cfg.Search.DefaultRadiusM,
		Retry:         retryPolicy(cfg.Search.Retry),
	})

	c.Fanout, err = fanoutuc.New(c.Search, fanoutuc.Options{
		Workers: cfg.Fanout.Workers,
		Timeout: time.Duration(cfg.Fanout.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("fanout pool: %w", err)
	}

	c.Health = healthuc.New(c.Store, c.Embedders.Health,
		fmt.Sprintf("semantic search ready (%s, %d dimensions)", cfg.Embedding.Model, c.Dim))
	return nil
}

// Server builds the HTTP API over the context's services.
func (c *Context) Server() *chiTransport.Server {
	return chiTransport.NewServer(chiTransport.Deps{
		Search:   c.Search,
		Fanout:   c.Fanout,
		Embedder: c.Embedders.Raw,
		Health:   c.Health,
		Router:   c.Registry,
	})
}

// Close releases the worker pool and the store connection.
func (c *Context) Close() {
	if c.Fanout != nil {
		c.Fanout.Release()
	}
	if c.Store != nil {
		c.Store.Close()
	}
}
