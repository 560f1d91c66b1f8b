// Package store provides a SQLite-backed cache of RAG query responses so
// repeated expansions of the same draft do not re-query the service.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/acadwrite/internal/rag"

	_ "modernc.org/sqlite"
)

// Cache stores opaque values by key with a fixed time-to-live.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// Open opens (or creates) the cache database at path. Use ":memory:" for
// an in-memory cache.
func Open(path string, ttl time.Duration) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A pool would hand out separate in-memory databases.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{db: db, ttl: ttl, now: time.Now}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS query_cache (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		expires_at INTEGER NOT NULL
	)`)
	return err
}

// Get returns the value for key if present and unexpired.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT value FROM query_cache WHERE key = ? AND expires_at > ?`,
		key, c.now().Unix(),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Put stores value under key, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, key string, value []byte) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO query_cache (key, value, expires_at) VALUES (?, ?, ?)`,
		key, value, c.now().Add(c.ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Purge deletes expired entries and reports how many were removed.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM query_cache WHERE expires_at <= ?`, c.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	return res.RowsAffected()
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Querier is the query half of the RAG client.
type Querier interface {
	Query(ctx context.Context, req rag.QueryRequest) (*rag.QueryResponse, error)
}

// CachedRAG serves repeated queries from a Cache. Errors are never cached,
// and cache failures fall through to the wrapped client.
type CachedRAG struct {
	next  Querier
	cache *Cache
	log   *slog.Logger
}

func NewCachedRAG(next Querier, cache *Cache, log *slog.Logger) *CachedRAG {
	if log == nil {
		log = slog.Default()
	}
	return &CachedRAG{next: next, cache: cache, log: log.With("component", "rag_cache")}
}

func (c *CachedRAG) Query(ctx context.Context, req rag.QueryRequest) (*rag.QueryResponse, error) {
	key := RequestKey(req)

	if raw, ok, err := c.cache.Get(ctx, key); err != nil {
		c.log.Warn("cache read failed", "error", err)
	} else if ok {
		var resp rag.QueryResponse
		if err := json.Unmarshal(raw, &resp); err == nil {
			c.log.Debug("cache hit", "collection", req.Collection)
			return &resp, nil
		}
	}

	resp, err := c.next.Query(ctx, req)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(resp)
	if err == nil {
		err = c.cache.Put(ctx, key, raw)
	}
	if err != nil {
		c.log.Warn("cache write failed", "error", err)
	}
	return resp, nil
}

// RequestKey is the hex SHA-256 of every field that affects the answer.
func RequestKey(req rag.QueryRequest) string {
	b, _ := json.Marshal(struct {
		Collection   string `json:"c"`
		Question     string `json:"q"`
		SearchType   string `json:"t"`
		AnswerFormat string `json:"f"`
		MaxSources   int    `json:"n"`
	}{req.Collection, req.Question, req.SearchType, req.AnswerFormat, req.MaxSources})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
