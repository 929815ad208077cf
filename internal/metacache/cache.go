// Package metacache keeps canonical upstream meta records in sqlite for a
// bounded time. Enriched records are never stored here.
package metacache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ratingposter/internal/logging"
	"ratingposter/pkg/models"
)

// Source is the upstream the cache sits in front of.
type Source interface {
	Meta(ctx context.Context, contentType, id string) (*models.Meta, error)
}

// Cache is a read-through TTL cache over a Source. A zero TTL disables it.
type Cache struct {
	DB     *sql.DB
	Source Source
	TTL    time.Duration
	Now    func() time.Time
	Log    *zap.Logger
}

func New(db *sql.DB, src Source, ttl time.Duration, log *zap.Logger) *Cache {
	return &Cache{DB: db, Source: src, TTL: ttl, Now: time.Now, Log: logging.OrNop(log)}
}

func (c *Cache) enabled() bool { return c.DB != nil && c.TTL > 0 }

func (c *Cache) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Meta returns the cached record when it is younger than TTL, else asks the
// source and stores a successful answer. Cache errors never fail a lookup.
func (c *Cache) Meta(ctx context.Context, contentType, id string) (*models.Meta, error) {
	if !c.enabled() {
		return c.Source.Meta(ctx, contentType, id)
	}
	log := logging.OrNop(c.Log)

	m, err := c.get(ctx, contentType, id)
	switch {
	case err != nil:
		log.Warn("meta cache read failed", zap.String("id", id), zap.Error(err))
	case m != nil:
		return m, nil
	}

	m, err = c.Source.Meta(ctx, contentType, id)
	if err != nil {
		return nil, err
	}
	if err := c.put(ctx, contentType, id, m); err != nil {
		log.Warn("meta cache write failed", zap.String("id", id), zap.Error(err))
	}
	return m, nil
}

func (c *Cache) get(ctx context.Context, contentType, id string) (*models.Meta, error) {
	row := c.DB.QueryRowContext(ctx, `
		SELECT body, fetched_at
		FROM meta_cache
		WHERE content_type = ? AND id = ?
	`, contentType, id)

	var (
		body      string
		fetchedAt int64
	)
	if err := row.Scan(&body, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan meta_cache: %w", err)
	}
	if c.now().Sub(time.Unix(fetchedAt, 0)) >= c.TTL {
		return nil, nil
	}

	var m models.Meta
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return nil, fmt.Errorf("decode cached meta: %w", err)
	}
	if !m.Valid() {
		return nil, nil
	}
	return &m, nil
}

func (c *Cache) put(ctx context.Context, contentType, id string, m *models.Meta) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	_, err = c.DB.ExecContext(ctx, `
		INSERT INTO meta_cache (content_type, id, body, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(content_type, id) DO UPDATE SET
			body = excluded.body,
			fetched_at = excluded.fetched_at
	`, contentType, id, string(body), c.now().Unix())
	if err != nil {
		return fmt.Errorf("upsert meta_cache: %w", err)
	}
	return nil
}

// Purge deletes expired rows and returns how many were removed.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	cutoff := c.now().Add(-c.TTL).Unix()
	res, err := c.DB.ExecContext(ctx, `DELETE FROM meta_cache WHERE fetched_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge meta_cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
