package fanout

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/domain/search/request"
	"github.com/kailas-cloud/semsearch/internal/usecase/search"
)

// Searcher runs one single-collection search.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) (search.Response, error)
	Limits() request.Limits
}
