package db

import (
	"errors"

	"github.com/kailas-cloud/semsearch/internal/domain/search/filter"
)

// ScoreField is the alias KNN distance is returned under.
const ScoreField = "__vector_score"

// KNNQuery asks for the K nearest hashes to Vector among those matching Filters.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// Validate rejects queries the search module would refuse or misread.
func (q *KNNQuery) Validate() error {
	switch {
	case q.IndexName == "":
		return errors.New("knn: index name is required")
	case q.VectorField == "":
		return errors.New("knn: vector field is required")
	case len(q.Vector) == 0:
		return errors.New("knn: vector is required")
	case q.K <= 0:
		return errors.New("knn: k must be positive")
	}
	return nil
}

// SearchResult holds hits ordered by descending Score.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is one matched hash. Score is cosine similarity in [0,1].
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
