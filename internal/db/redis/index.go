package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/semsearch/internal/db"
)

// CreateIndex runs FT.CREATE ... ON HASH for a validated schema.
func (s *Store) CreateIndex(ctx context.Context, schema *db.Schema) error {
	if err := schema.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(createArgs(schema)...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// DropIndex removes an FT index. With deleteDocs the indexed hashes go too (DD).
func (s *Store) DropIndex(ctx context.Context, name string, deleteDocs bool) error {
	b := s.b().Arbitrary("FT.DROPINDEX").Args(name)
	if deleteDocs {
		b = b.Args("DD")
	}
	if err := s.do(ctx, b.Build()).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	return nil
}

// IndexExists reports whether FT.INFO knows the index.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	_, err := s.info(ctx, name)
	switch {
	case errors.Is(err, db.ErrIndexNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// IndexDocCount returns num_docs from FT.INFO.
func (s *Store) IndexDocCount(ctx context.Context, name string) (int, error) {
	info, err := s.info(ctx, name)
	if err != nil {
		return 0, err
	}
	raw, ok := info["num_docs"]
	if !ok {
		return 0, nil
	}
	n, err := raw.AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse num_docs: %w", err)
	}
	return int(n), nil
}

// info returns the top-level FT.INFO attributes keyed by name. RESP2 replies
// are a flat [name, value, ...] list; nested values are left unparsed.
func (s *Store) info(ctx context.Context, name string) (map[string]rueidis.RedisMessage, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index name") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	out := make(map[string]rueidis.RedisMessage, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		if key, err := raw[i].ToString(); err == nil {
			out[key] = raw[i+1]
		}
	}
	return out, nil
}

func createArgs(schema *db.Schema) []string {
	args := []string{schema.Index, "ON", "HASH", "PREFIX", "1", schema.Prefix, "SCHEMA"}
	for _, f := range schema.Fields {
		args = append(args, fieldArgs(f)...)
	}
	return args
}

func fieldArgs(f db.Field) []string {
	switch f.Kind {
	case db.KindTag:
		args := []string{f.Name, "TAG"}
		if f.Separator != "" {
			args = append(args, "SEPARATOR", f.Separator)
		}
		if f.CaseSensitive {
			args = append(args, "CASESENSITIVE")
		}
		return args
	case db.KindVector:
		return vectorArgs(f.Name, f.Vector)
	default:
		return []string{f.Name, string(f.Kind)}
	}
}

// vectorArgs renders "name VECTOR algo nargs attr value ...".
func vectorArgs(name string, v db.VectorSpec) []string {
	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(v.Dim),
		"DISTANCE_METRIC", db.Distance,
	}
	if v.Algorithm == db.VectorHNSW {
		if v.M > 0 {
			attrs = append(attrs, "M", strconv.Itoa(v.M))
		}
		if v.EFConstruct > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(v.EFConstruct))
		}
	}
	head := []string{name, "VECTOR", string(v.Algorithm), strconv.Itoa(len(attrs))}
	return append(head, attrs...)
}
