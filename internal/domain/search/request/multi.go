package request

import "github.com/kailas-cloud/semsearch/internal/domain/search/filter"

// EntityQuery is one entry of a multi-entity search.
type EntityQuery struct {
	Enabled bool   `json:"enabled"`
	Query   string `json:"query"`
	Limit   int    `json:"limit"`
}

// Multi is a multi-entity search. Filter applies to every enabled entity.
type Multi struct {
	Entities map[string]EntityQuery
	Filter   *filter.Input
}

// Enabled returns the names of the enabled entries.
func (m Multi) Enabled() []string {
	var names []string
	for name, q := range m.Entities {
		if q.Enabled {
			names = append(names, name)
		}
	}
	return names
}
