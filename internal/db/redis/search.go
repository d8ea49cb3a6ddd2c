package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/semsearch/internal/db"
)

// SearchKNN runs a filtered KNN query. Entries keep the server's ascending
// distance order; the distance alias is stripped from Fields and turned into Score.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(knnArgs(q)...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if rejected(err) {
			err = fmt.Errorf("%w: %w", db.ErrQueryRejected, err)
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return parseSearchReply(raw)
}

func knnArgs(q *db.KNNQuery) []string {
	args := []string{q.IndexName, knnQuery(q)}
	if n := len(q.ReturnFields); n > 0 {
		args = append(args, "RETURN", strconv.Itoa(n+1), db.ScoreField)
		args = append(args, q.ReturnFields...)
	}
	return append(args,
		"SORTBY", db.ScoreField, "ASC",
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", rueidis.VectorString32(q.Vector),
		"DIALECT", "2",
	)
}

// parseSearchReply decodes the RESP2 layout [total, key, [f, v, ...], key, ...].
func parseSearchReply(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	res := &db.SearchResult{Total: int(total), Entries: make([]db.SearchEntry, 0, len(raw)/2)}
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		pairs, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		fields := fieldMap(pairs)
		entry := db.SearchEntry{Key: key, Fields: fields}
		if d, ok := fields[db.ScoreField]; ok {
			entry.Score = similarity(d)
			delete(fields, db.ScoreField)
		}
		res.Entries = append(res.Entries, entry)
	}
	return res, nil
}

func fieldMap(pairs []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(pairs)/2)
	for j := 0; j+1 < len(pairs); j += 2 {
		name, err := pairs[j].ToString()
		if err != nil {
			continue
		}
		if value, err := pairs[j+1].ToString(); err == nil {
			m[name] = value
		}
	}
	return m
}

// similarity maps a cosine distance in [0,2] to a score in [0,1].
// Unparsable distances score 0.
func similarity(distance string) float64 {
	d, err := strconv.ParseFloat(distance, 64)
	if err != nil {
		return 0
	}
	return min(1, max(0, 1-d))
}
