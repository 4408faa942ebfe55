package store

import "context"

// HarnessCache is a SQLite-backed implementation of runner.Cache, meant
// as the cold tier of a runner.TieredCache (spec.md §9 "Concurrency
// around the cache": content-addressed, so writes of identical content
// are naturally idempotent — a re-PUT of the same cache_key just
// overwrites the row with identical bytes).
type HarnessCache struct {
	store *Store
}

// NewHarnessCache wraps store for use as a runner.Cache.
func NewHarnessCache(s *Store) *HarnessCache {
	return &HarnessCache{store: s}
}

// Get satisfies runner.Cache.
func (h *HarnessCache) Get(key string) (string, bool) {
	row := h.store.db.QueryRowContext(context.Background(),
		`SELECT content FROM harness_cache WHERE cache_key = ?`, key)
	var content string
	if err := row.Scan(&content); err != nil {
		return "", false
	}
	return content, true
}

// Put satisfies runner.Cache. Writes are idempotent: the same key always
// maps to the same content, since the key is a content hash of the
// (problem id, IR bytes, generator version, language) tuple.
func (h *HarnessCache) Put(key, content string) {
	_, _ = h.store.db.ExecContext(context.Background(),
		`INSERT INTO harness_cache (cache_key, content) VALUES (?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET content = excluded.content`,
		key, content)
}

var _ interface {
	Get(string) (string, bool)
	Put(string, string)
} = (*HarnessCache)(nil)
