package chi

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/semsearch/internal/domain/search/request"
)

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type rootResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Checks  map[string]string `json:"checks"`
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Dim       int       `json:"dim"`
	TimeMs    float64   `json:"time_ms"`
}

type searchRequest struct {
	Query      string        `json:"query"`
	Limit      int           `json:"limit"`
	Filters    *filter.Input `json:"filters,omitempty"`
	Collection string        `json:"collection,omitempty"`
}

type searchResponse struct {
	Results []any   `json:"results"`
	TookMs  float64 `json:"took_ms"`
}

// locationFilter is the geo shorthand of /multi_search.
type locationFilter struct {
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
	RadiusM *float64 `json:"radius_m,omitempty"`
}

type multiSearchRequest struct {
	Entities map[string]request.EntityQuery `json:"entities"`
	Location *locationFilter                `json:"location,omitempty"`
	Filters  *filter.Input                  `json:"filters,omitempty"`
}

// filter merges filters and location. Location coordinates win.
func (m *multiSearchRequest) filter() *filter.Input {
	if m.Filters == nil && m.Location == nil {
		return nil
	}
	var in filter.Input
	if m.Filters != nil {
		in = *m.Filters
	}
	if m.Location != nil {
		in.Lat, in.Lon = m.Location.Lat, m.Location.Lon
		if m.Location.RadiusM != nil {
			in.RadiusMeters = m.Location.RadiusM
		}
	}
	return &in
}

type multiSearchResponse struct {
	Results  map[string][]any         `json:"results"`
	TookMs   float64                  `json:"took_ms"`
	Summary  map[string]int           `json:"summary"`
	Failures map[string]errorResponse `json:"failures,omitempty"`
}

// searchFromQuery parses the GET /search query string.
func searchFromQuery(v url.Values) (searchRequest, error) {
	out := searchRequest{
		Query:      v.Get("query"),
		Collection: v.Get("collection"),
	}

	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return searchRequest{}, domain.NewValidation("limit", "must be an integer")
		}
		out.Limit = n
	}

	var in filter.Input
	present := false
	if city := strings.TrimSpace(v.Get("city")); city != "" {
		in.City = city
		present = true
	}
	if tags := filter.SplitTags(v.Get("tags")); len(tags) > 0 {
		in.Tags = tags
		present = true
	}

	for _, p := range []struct {
		name string
		dst  **float64
	}{
		{"lat", &in.Lat},
		{"lon", &in.Lon},
		{"radius_m", &in.RadiusMeters},
	} {
		s := v.Get(p.name)
		if s == "" {
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return searchRequest{}, domain.NewValidation(p.name, "must be a number")
		}
		*p.dst = &f
		present = true
	}

	if present {
		out.Filters = &in
	}
	return out, nil
}
