// Package rowcache keeps SPARQL result rows in a local SQLite file so that
// repeated realizations of the same query skip the network.
//
// A Cache wraps any querier and is itself a querier, so it slots in between
// an rdfmodel.Database and a driver.Store. Cache failures never fail a
// query: they are logged and the underlying store is asked instead.
package rowcache

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cayleygraph/quad"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Querier runs a SELECT with initial bindings. driver.Store implements it.
type Querier interface {
	Query(ctx context.Context, query string, bindings map[string]quad.Value) ([]map[string]quad.Value, error)
}

// Cache is a read-through result cache in front of a Querier.
type Cache struct {
	db     *sql.DB
	next   Querier
	scope  string
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL expires entries older than ttl. Zero keeps entries until Purge.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithLogger sets the logger for cache failures. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithScope names the store behind the cache, so one cache file can serve
// several repositories without mixing their rows. Defaults to the wrapped
// querier's RepositoryURL when it has one.
func WithScope(scope string) Option {
	return func(c *Cache) { c.scope = scope }
}

// repository is implemented by driver.Store.
type repository interface {
	RepositoryURL() string
}

func withClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// Open creates or opens the cache database at path and wraps next.
// Use ":memory:" for a process-local cache.
func Open(path string, next Querier, opts ...Option) (*Cache, error) {
	if next == nil {
		return nil, errors.New("rowcache: nil querier")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to cache database: %w", err)
	}
	// One connection: SQLite has a single writer, and an in-memory database
	// exists only on the connection that created it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply cache schema: %w", err)
	}

	c := &Cache{db: db, next: next, logger: slog.Default(), now: time.Now}
	if r, ok := next.(repository); ok {
		c.scope = r.RepositoryURL()
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func applyPragmas(db *sql.DB) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the cache database. The wrapped querier is left open.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Hits returns the number of queries answered from the cache.
func (c *Cache) Hits() int64 { return c.hits.Load() }

// Misses returns the number of queries forwarded to the wrapped querier.
func (c *Cache) Misses() int64 { return c.misses.Load() }

// Query returns cached rows for (query, bindings) when a fresh entry exists,
// otherwise asks the wrapped querier and stores a successful answer.
func (c *Cache) Query(ctx context.Context, query string, bindings map[string]quad.Value) ([]map[string]quad.Value, error) {
	key, err := Key(c.scope, query, bindings)
	if err != nil {
		c.logger.Warn("rowcache: cannot key query, bypassing cache", "error", err)
		return c.next.Query(ctx, query, bindings)
	}

	if rows, ok := c.lookup(ctx, key); ok {
		c.hits.Add(1)
		return rows, nil
	}

	c.misses.Add(1)
	rows, err := c.next.Query(ctx, query, bindings)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, rows)
	return rows, nil
}

func (c *Cache) lookup(ctx context.Context, key string) ([]map[string]quad.Value, bool) {
	var (
		data    []byte
		created int64
	)
	err := c.db.QueryRowContext(ctx,
		"SELECT rows, created_at FROM query_cache WHERE key = ?", key).Scan(&data, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("rowcache: lookup failed", "key", key, "error", err)
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(time.Unix(0, created)) >= c.ttl {
		return nil, false
	}
	rows, err := decodeRows(data)
	if err != nil {
		c.logger.Warn("rowcache: discarding unreadable entry", "key", key, "error", err)
		return nil, false
	}
	c.logger.Debug("rowcache: hit", "key", key, "rows", len(rows))
	return rows, true
}

func (c *Cache) store(ctx context.Context, key string, rows []map[string]quad.Value) {
	data, err := encodeRows(rows)
	if err != nil {
		c.logger.Warn("rowcache: cannot encode rows", "key", key, "error", err)
		return
	}
	_, err = c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO query_cache (key, rows, created_at) VALUES (?, ?, ?)",
		key, data, c.now().UnixNano())
	if err != nil {
		c.logger.Warn("rowcache: store failed", "key", key, "error", err)
	}
}

// Purge removes every entry and returns how many were removed.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, "DELETE FROM query_cache")
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return res.RowsAffected()
}

// Expire removes entries older than the TTL. It is a no-op without a TTL.
func (c *Cache) Expire(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	cutoff := c.now().Add(-c.ttl).UnixNano()
	res, err := c.db.ExecContext(ctx, "DELETE FROM query_cache WHERE created_at <= ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire cache: %w", err)
	}
	return res.RowsAffected()
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM query_cache").Scan(&n); err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return n, nil
}
