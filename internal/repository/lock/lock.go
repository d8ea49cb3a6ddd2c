// Package lock guards a collection with a single-writer advisory lock.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/repository/keyspace"
)

// DefaultTTL bounds how long a crashed writer can hold a collection.
const DefaultTTL = 30 * time.Minute

// ErrLeaseLost is returned by Extend once the lock expired or another writer took it.
var ErrLeaseLost = errors.New("ingest lock lost")

// store is the consumer interface for locks (ISP).
type store interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
	ExtendLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
}

// Repo hands out ingest locks.
type Repo struct {
	store store
	keys  keyspace.Keyspace
	ttl   time.Duration
	token func() string
}

// New creates a lock repository. Non-positive ttl falls back to DefaultTTL.
func New(s store, keys keyspace.Keyspace, ttl time.Duration) *Repo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Repo{store: s, keys: keys, ttl: ttl, token: uuid.NewString}
}

// Lease is a held lock. Release is safe to call more than once.
type Lease struct {
	repo  *Repo
	key   string
	token string
}

// Acquire takes the ingest lock of a collection.
// Returns ErrIngestLocked when another writer holds it.
func (r *Repo) Acquire(ctx context.Context, collection string) (*Lease, error) {
	key := r.keys.IngestLock(collection)
	token := r.token()

	ok, err := r.store.AcquireLock(ctx, key, token, r.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", collection, domain.ErrIngestLocked)
	}
	return &Lease{repo: r, key: key, token: token}, nil
}

// Release drops the lock if it is still ours.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.token == "" {
		return nil
	}
	err := l.repo.store.ReleaseLock(ctx, l.key, l.token)
	l.token = ""
	if err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}

// Extend restarts the lease TTL. Long loads call it between batches so the
// lock outlives the run instead of the TTL.
func (l *Lease) Extend(ctx context.Context) error {
	if l == nil || l.token == "" {
		return fmt.Errorf("extend: %w", ErrLeaseLost)
	}
	ok, err := l.repo.store.ExtendLock(ctx, l.key, l.token, l.repo.ttl)
	if err != nil {
		return fmt.Errorf("extend %s: %w", l.key, err)
	}
	if !ok {
		l.token = ""
		return fmt.Errorf("extend %s: %w", l.key, ErrLeaseLost)
	}
	return nil
}
