package request

import (
	"strings"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/search/filter"
)

// Search parameter limits.
const (
	// MaxQueryLength is the default maximum query length in bytes.
	MaxQueryLength = 4096
	DefaultLimit   = 10
	MaxLimit       = 50
)

// Limits is the limit policy applied to every request.
type Limits struct {
	Default        int
	Max            int
	MaxQueryLength int
}

// DefaultLimits returns the stock policy: 10 by default, at most 50.
func DefaultLimits() Limits {
	return Limits{Default: DefaultLimit, Max: MaxLimit, MaxQueryLength: MaxQueryLength}
}

func (l Limits) withDefaults() Limits {
	if l.Default <= 0 {
		l.Default = DefaultLimit
	}
	if l.Max <= 0 {
		l.Max = MaxLimit
	}
	if l.Default > l.Max {
		l.Default = l.Max
	}
	if l.MaxQueryLength <= 0 {
		l.MaxQueryLength = MaxQueryLength
	}
	return l
}

// Request is a validated single-collection search.
type Request struct {
	entity string
	query  string
	limit  int
	filter *filter.Input
}

// New validates a search. A zero limit takes the default, a limit above the
// maximum is clamped and a negative one is rejected.
func New(entity, query string, limit int, f *filter.Input, l Limits) (Request, error) {
	l = l.withDefaults()

	if strings.TrimSpace(query) == "" {
		return Request{}, domain.NewValidation("query", "is required")
	}
	if len(query) > l.MaxQueryLength {
		return Request{}, domain.NewValidation("query", "is too long")
	}
	if limit < 0 {
		return Request{}, domain.NewValidation("limit", "must not be negative")
	}
	if limit == 0 {
		limit = l.Default
	}
	if limit > l.Max {
		limit = l.Max
	}

	return Request{entity: entity, query: query, limit: limit, filter: f}, nil
}

// Entity returns the requested entity type name, not yet resolved.
func (r *Request) Entity() string { return r.entity }

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// Limit returns the maximum number of hits.
func (r *Request) Limit() int { return r.limit }

// Filter returns the raw filter input, nil when absent.
func (r *Request) Filter() *filter.Input { return r.filter }
