package studyquiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteCache stores question sets in a SQLite database so they survive a
// restart. A zero TTL means entries never expire.
type SQLiteCache struct {
	db     *sql.DB
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

const createQuestionCacheTable = `CREATE TABLE IF NOT EXISTS question_cache (
	digest TEXT PRIMARY KEY,
	payload BLOB NOT NULL,
	created_at DATETIME NOT NULL
)`

// OpenSQLiteCache opens (or creates) the cache database at dbPath
func OpenSQLiteCache(dbPath string, ttl time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	if _, err := db.Exec(createQuestionCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache table: %w", err)
	}

	return &SQLiteCache{db: db, ttl: ttl}, nil
}

// Get returns the payload stored under digest unless it has expired
func (c *SQLiteCache) Get(ctx context.Context, digest string) ([]byte, bool, error) {
	var payload []byte
	var createdAt time.Time
	err := c.db.QueryRowContext(ctx,
		"SELECT payload, created_at FROM question_cache WHERE digest = ?",
		digest,
	).Scan(&payload, &createdAt)
	if err != nil {
		c.misses.Add(1)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if c.ttl > 0 && time.Since(createdAt) > c.ttl {
		c.misses.Add(1)
		return nil, false, nil
	}

	c.hits.Add(1)
	return payload, true, nil
}

// Set stores payload under digest, replacing any previous value
func (c *SQLiteCache) Set(ctx context.Context, digest string, payload []byte) error {
	_, err := c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO question_cache (digest, payload, created_at) VALUES (?, ?, ?)",
		digest, payload, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Stats returns the number of stored entries and this process's counters
func (c *SQLiteCache) Stats(ctx context.Context) (CacheStats, error) {
	var count int64
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM question_cache").Scan(&count); err != nil {
		return CacheStats{}, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return CacheStats{
		Backend: CacheBackendSQLite,
		Entries: count,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Clear removes every entry
func (c *SQLiteCache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM question_cache"); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Close closes the database connection
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
