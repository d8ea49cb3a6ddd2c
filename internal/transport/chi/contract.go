package chi

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/domain/search/request"
	fanoutuc "github.com/kailas-cloud/semsearch/internal/usecase/fanout"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

// Searcher runs single-collection searches.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) (searchuc.Response, error)
	Limits() request.Limits
}

// MultiSearcher runs multi-entity searches.
type MultiSearcher interface {
	MultiSearch(ctx context.Context, m request.Multi) fanoutuc.Response
}

// Embedder vectorizes raw text for /embed.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Router maps entity types to their collections and projections.
type Router interface {
	Get(t entity.Type) (entity.Collection, error)
}
