package point

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/repository/keyspace"
)

// DefaultTextMaxRunes caps the stored search text.
const DefaultTextMaxRunes = 500

// store is the consumer interface for entity hashes (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) ([]error, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
}

// Repo writes and reads entity hashes.
type Repo struct {
	store   store
	keys    keyspace.Keyspace
	textMax int
}

// New creates a point repository.
func New(s store, keys keyspace.Keyspace) *Repo {
	return &Repo{store: s, keys: keys, textMax: DefaultTextMaxRunes}
}

// WithTextMax overrides the stored text cap. Non-positive disables it.
func (r *Repo) WithTextMax(n int) *Repo {
	r.textMax = n
	return r
}

// Upsert writes a single record, overwriting any previous version.
func (r *Repo) Upsert(ctx context.Context, c entity.Collection, rec *Record) error {
	if rec.ID == "" {
		return domain.NewValidation("id", "must not be empty")
	}
	key := r.keys.Doc(c.Name, rec.ID)
	if err := r.store.HSet(ctx, key, buildHashFields(rec, c.VectorField, r.textMax)); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// UpsertBatch writes records in one pipelined round trip. Items rejected by
// the pipeline are retried one by one. The returned slice holds the final
// error of each record (nil on success); it is nil when everything succeeded.
func (r *Repo) UpsertBatch(ctx context.Context, c entity.Collection, recs []Record) []error {
	if len(recs) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(recs))
	for i := range recs {
		items[i] = db.HashSetItem{
			Key:    r.keys.Doc(c.Name, recs[i].ID),
			Fields: buildHashFields(&recs[i], c.VectorField, r.textMax),
		}
	}

	itemErrs, err := r.store.HSetMulti(ctx, items)
	if err == nil {
		return nil
	}

	out := make([]error, len(recs))
	failed := false
	for i := range recs {
		// a transport failure leaves no per-item errors, so every row is retried
		if len(itemErrs) == len(recs) && itemErrs[i] == nil {
			continue
		}
		if retryErr := r.store.HSet(ctx, items[i].Key, items[i].Fields); retryErr != nil {
			out[i] = fmt.Errorf("hset %s: %w", items[i].Key, retryErr)
			failed = true
		}
	}
	if !failed {
		return nil
	}
	return out
}

// Get reads a stored record.
func (r *Repo) Get(ctx context.Context, c entity.Collection, id string) (Record, error) {
	key := r.keys.Doc(c.Name, id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return Record{}, domain.ErrNotFound
		}
		return Record{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return Record{}, domain.ErrNotFound
	}

	rec := Record{
		ID:      id,
		Entity:  entity.Type(m[FieldEntityType]),
		Text:    m[FieldText],
		Vector:  decodeVector(m[c.VectorField]),
		Payload: DecodePayload(m),
	}
	if ts, err := strconv.ParseInt(m[FieldIngestedAt], 10, 64); err == nil {
		rec.IngestedAt = time.Unix(ts, 0).UTC()
	}
	return rec, nil
}

// Delete removes a stored record.
func (r *Repo) Delete(ctx context.Context, c entity.Collection, id string) error {
	key := r.keys.Doc(c.Name, id)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}
