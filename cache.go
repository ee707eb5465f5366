package studyquiz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"sync/atomic"
)

// Cache maps the digest of a piece of study text to the question-set JSON
// generated for it.
type Cache interface {
	Get(ctx context.Context, digest string) ([]byte, bool, error)
	Set(ctx context.Context, digest string, payload []byte) error
	Stats(ctx context.Context) (CacheStats, error)
	Clear(ctx context.Context) error
	Close() error
}

// CacheStats holds cache performance counters. Hits and misses count lookups
// made through this process only.
type CacheStats struct {
	Backend string `json:"backend"`
	Entries int64  `json:"entries"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
}

// HashText returns the hex SHA-256 digest of the study text with surrounding
// whitespace removed.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// MemoryCache keeps entries for the lifetime of the process. There is no
// eviction and no size bound.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewMemoryCache creates an empty in-process cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string][]byte),
	}
}

// Get returns a copy of the payload stored under digest
func (c *MemoryCache) Get(_ context.Context, digest string) ([]byte, bool, error) {
	c.mu.RLock()
	payload, ok := c.entries[digest]
	c.mu.RUnlock()

	if !ok {
		c.misses.Add(1)
		return nil, false, nil
	}
	c.hits.Add(1)
	return append([]byte(nil), payload...), true, nil
}

// Set stores payload under digest, replacing any previous value
func (c *MemoryCache) Set(_ context.Context, digest string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[digest] = append([]byte(nil), payload...)
	return nil
}

// Stats returns the entry count and hit/miss counters
func (c *MemoryCache) Stats(_ context.Context) (CacheStats, error) {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()

	return CacheStats{
		Backend: CacheBackendMemory,
		Entries: int64(n),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Clear drops every entry
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]byte)
	return nil
}

// Close is a no-op
func (c *MemoryCache) Close() error {
	return nil
}
