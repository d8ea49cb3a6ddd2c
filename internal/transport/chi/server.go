package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/semsearch/internal/domain/search/request"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
	"github.com/kailas-cloud/semsearch/internal/logger"
)

// DefaultCollection is searched when a request names none.
const DefaultCollection = "services"

const maxBodyBytes = 1 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Deps are the services behind the HTTP surface.
type Deps struct {
	Search Searcher
	Fanout MultiSearcher
	// Embedder serves /embed and applies no instruction prefix.
	Embedder Embedder
	Health   HealthChecker
	Router   Router
}

// Server serves the search gateway API.
type Server struct {
	deps          Deps
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(deps Deps) *Server {
	s := &Server{deps: deps}
	s.errorHandlers = []errorHandler{
		kindHandler(domain.KindValidation, http.StatusBadRequest),
		kindHandler(domain.KindUnknownEntityType, http.StatusBadRequest),
		kindHandler(domain.KindTimeout, http.StatusGatewayTimeout),
		kindHandler(domain.KindEmbeddingFailure, http.StatusBadGateway),
		kindHandler(domain.KindBackendUnavailable, http.StatusServiceUnavailable),
		kindHandler(domain.KindNotFound, http.StatusNotFound),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/", s.Root)
	r.Post("/embed", s.Embed)
	r.Get("/search", s.SearchQuery)
	r.Post("/search", s.Search)
	r.Post("/multi_search", s.MultiSearch)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, r *http.Request) {
	report := s.deps.Health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	writeJSON(w, http.StatusOK, rootResponse{
		Status:  string(report.Status),
		Message: report.Message,
		Checks:  checks,
	})
}

// Embed handles POST /embed.
func (s *Server) Embed(w http.ResponseWriter, r *http.Request) {
	var body embedRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	start := time.Now()
	res, err := s.deps.Embedder.Embed(r.Context(), body.Text)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, embedResponse{
		Embedding: res.Embedding,
		Dim:       len(res.Embedding),
		TimeMs:    millis(time.Since(start)),
	})
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var body searchRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.runSearch(w, r, body.Collection, body.Query, body.Limit, body.Filters)
}

// SearchQuery handles GET /search, the query-string form of POST /search.
func (s *Server) SearchQuery(w http.ResponseWriter, r *http.Request) {
	q, err := searchFromQuery(r.URL.Query())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.runSearch(w, r, q.Collection, q.Query, q.Limit, q.Filters)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, collection, query string, limit int, f *filter.Input) {
	if collection == "" {
		collection = DefaultCollection
	}

	req, err := request.New(collection, query, limit, f, s.deps.Search.Limits())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp, err := s.deps.Search.Search(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Results: s.project(resp.Hits),
		TookMs:  millis(resp.Elapsed),
	})
}

// MultiSearch handles POST /multi_search.
func (s *Server) MultiSearch(w http.ResponseWriter, r *http.Request) {
	var body multiSearchRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if len(body.Entities) == 0 {
		s.handleDomainError(w, r, domain.NewValidation("entities", "is required"))
		return
	}
	multi := request.Multi{Entities: body.Entities, Filter: body.filter()}
	if len(multi.Enabled()) == 0 {
		s.handleDomainError(w, r, domain.NewValidation("entities", "must enable at least one entity"))
		return
	}

	resp := s.deps.Fanout.MultiSearch(r.Context(), multi)

	out := multiSearchResponse{
		Results: make(map[string][]any, len(resp.Results)),
		Summary: make(map[string]int, len(resp.Summary)),
		TookMs:  millis(resp.Elapsed),
	}
	for t, hits := range resp.Results {
		out.Results[t.Plural()] = s.project(hits)
	}
	for t, n := range resp.Summary {
		out.Summary[t.Plural()] = n
	}
	if len(resp.Failures) > 0 {
		out.Failures = make(map[string]errorResponse, len(resp.Failures))
		for name, f := range resp.Failures {
			out.Failures[name] = errorResponse{Kind: f.Kind, Message: f.Message}
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) project(hits []result.Hit) []any {
	out := make([]any, len(hits))
	for i := range hits {
		p := hits[i].Entity().DefaultProjection()
		if c, err := s.deps.Router.Get(hits[i].Entity()); err == nil {
			p = c.Projection
		}
		out[i] = result.Project(hits[i], p)
	}
	return out
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return domain.NewValidation("body", "is not valid JSON")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Kind: kind, Message: message})
}

// safeDomainMessage returns a client-safe message. Typed errors carry only
// request data; everything else is reduced to its sentinel.
func safeDomainMessage(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	var ue *domain.UnknownEntityTypeError
	if errors.As(err, &ue) {
		return ue.Error()
	}

	sentinels := []error{
		domain.ErrValidation,
		domain.ErrTimeout,
		domain.ErrEmbeddingFailure,
		domain.ErrBackendUnavailable,
		domain.ErrNotFound,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	if domain.KindOf(err) == domain.KindTimeout {
		return domain.ErrTimeout.Error()
	}
	return "internal error"
}

// kindHandler returns an errorHandler that matches one error kind.
func kindHandler(kind string, status int) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if domain.KindOf(err) != kind {
			return false
		}
		writeError(w, status, kind, safeDomainMessage(err))
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("Request failed", zap.String("kind", domain.KindOf(err)), zap.Error(err))
			return
		}
	}
	log.Error("Internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, domain.KindInternal, "internal error")
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

var _ Router = (*entity.Registry)(nil)
