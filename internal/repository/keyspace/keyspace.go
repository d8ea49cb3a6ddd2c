// Package keyspace owns the Redis key layout shared by every repository.
//
//	<prefix>collection:<name>      collection metadata hash
//	<prefix><name>:idx             FT index
//	<prefix><name>:<id>            entity hash
//	<prefix>emb_cache:<sha256>     cached embedding
//	<prefix>lock:ingest:<name>     single-writer ingest lock
package keyspace

import "strings"

// DefaultPrefix is used when no prefix is configured.
const DefaultPrefix = "semsearch:"

// Keyspace builds keys under a common prefix.
type Keyspace struct {
	prefix string
}

// New creates a keyspace. An empty prefix falls back to DefaultPrefix.
func New(prefix string) Keyspace {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Keyspace{prefix: prefix}
}

// Prefix returns the common prefix.
func (k Keyspace) Prefix() string { return k.prefix }

// Meta returns the metadata key of a collection.
func (k Keyspace) Meta(collection string) string { return k.prefix + "collection:" + collection }

// Index returns the FT index name of a collection.
func (k Keyspace) Index(collection string) string { return k.prefix + collection + ":idx" }

// DocPrefix returns the key prefix indexed by a collection.
func (k Keyspace) DocPrefix(collection string) string { return k.prefix + collection + ":" }

// Doc returns the key of one entity.
func (k Keyspace) Doc(collection, id string) string { return k.DocPrefix(collection) + id }

// DocID strips the collection prefix from a document key.
func (k Keyspace) DocID(collection, key string) string {
	return strings.TrimPrefix(key, k.DocPrefix(collection))
}

// EmbeddingCache returns the cache key of a text digest.
func (k Keyspace) EmbeddingCache(digest string) string { return k.prefix + "emb_cache:" + digest }

// IngestLock returns the single-writer lock key of a collection.
func (k Keyspace) IngestLock(collection string) string { return k.prefix + "lock:ingest:" + collection }
