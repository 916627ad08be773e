package authz

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// SnapshotCache holds the most recent permission snapshot per user.
// Entries expire after the configured TTL and can be invalidated
// explicitly or marked dirty by an external event (an admin editing
// roles). Expired, dirty and absent all read as a miss; a miss is a
// normal outcome, never an error. Concurrent puts for the same key are
// last-writer-wins: snapshots are immutable values, so a duplicate
// fetch is harmless.
type SnapshotCache struct {
	entries *lru.LRU[int64, Snapshot]
	ttl     time.Duration

	mu    sync.Mutex
	dirty map[int64]struct{}
}

// NewSnapshotCache builds a cache bounded to size entries with the
// given TTL.
func NewSnapshotCache(size int, ttl time.Duration) *SnapshotCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &SnapshotCache{
		entries: lru.NewLRU[int64, Snapshot](size, nil, ttl),
		ttl:     ttl,
		dirty:   make(map[int64]struct{}),
	}
}

// Get returns the cached snapshot for the user. Dirty and expired
// entries are treated as absent.
func (c *SnapshotCache) Get(userID int64) (Snapshot, bool) {
	c.mu.Lock()
	_, isDirty := c.dirty[userID]
	c.mu.Unlock()
	if isDirty {
		return Snapshot{}, false
	}

	snap, ok := c.entries.Get(userID)
	if !ok {
		return Snapshot{}, false
	}
	// The LRU evicts lazily; double-check age so a stale entry is
	// never trusted between eviction sweeps.
	if snap.Expired(c.ttl, time.Now().UTC()) {
		return Snapshot{}, false
	}
	return snap, true
}

// Put replaces any existing entry for the user and clears its dirty mark.
func (c *SnapshotCache) Put(userID int64, snap Snapshot) {
	c.mu.Lock()
	delete(c.dirty, userID)
	c.mu.Unlock()
	c.entries.Add(userID, snap)
}

// Invalidate drops the entry for one user.
func (c *SnapshotCache) Invalidate(userID int64) {
	c.mu.Lock()
	delete(c.dirty, userID)
	c.mu.Unlock()
	c.entries.Remove(userID)
}

// InvalidateAll drops every entry.
func (c *SnapshotCache) InvalidateAll() {
	c.mu.Lock()
	c.dirty = make(map[int64]struct{})
	c.mu.Unlock()
	c.entries.Purge()
}

// MarkDirty flags a user's snapshot as untrusted without removing it.
// The next Get misses and forces a refetch.
func (c *SnapshotCache) MarkDirty(userID int64) {
	c.mu.Lock()
	c.dirty[userID] = struct{}{}
	c.mu.Unlock()
}

// NeedsRefresh reports whether the user has no trustworthy snapshot.
func (c *SnapshotCache) NeedsRefresh(userID int64) bool {
	_, ok := c.Get(userID)
	return !ok
}

// TTL exposes the configured snapshot lifetime.
func (c *SnapshotCache) TTL() time.Duration {
	return c.ttl
}
