// Package postgres provides a Postgres-backed brand.Cache over the website_data table.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/brandprobe/internal/brand"
)

const defaultTable = "website_data"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for cached results.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	// TTL hides records older than this from Get. Zero keeps records forever.
	TTL time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// Cache stores extraction results in Postgres. Duplicate URLs are allowed; Get returns the newest row.
type Cache struct {
	pool  pool
	table string
	ttl   time.Duration
	clock brand.Clock
}

// New creates a Postgres-backed Cache using the provided config.
func New(ctx context.Context, cfg Config, clock brand.Clock) (*Cache, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	c, err := NewWithPool(p, cfg.Table, cfg.TTL, clock)
	if err != nil {
		p.Close()
		return nil, err
	}
	return c, nil
}

// NewWithPool constructs a cache from an existing pool (primarily for testing).
func NewWithPool(p pool, table string, ttl time.Duration, clock brand.Clock) (*Cache, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	return &Cache{pool: p, table: table, ttl: ttl, clock: clock}, nil
}

// Close releases the underlying pool resources.
func (c *Cache) Close() {
	if c == nil || c.pool == nil {
		return
	}
	c.pool.Close()
}

// EnsureSchema creates the cache table if it does not exist.
func (c *Cache) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id BIGSERIAL PRIMARY KEY,
	url TEXT NOT NULL,
	logo TEXT NOT NULL,
	brand_color TEXT NOT NULL,
	industry TEXT NOT NULL DEFAULT '',
	alternative_logos JSONB NOT NULL DEFAULT '[]',
	snapshot_uri TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, c.table)
	if _, err := c.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_url_idx ON %[1]s (url, created_at DESC)`, c.table)
	if _, err := c.pool.Exec(ctx, index); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	return nil
}

// Get returns the newest record stored for url.
func (c *Cache) Get(ctx context.Context, url string) (brand.Record, bool, error) {
	var notBefore time.Time
	if c.ttl > 0 {
		notBefore = c.clock.Now().Add(-c.ttl)
	}
	query := fmt.Sprintf(`
SELECT url, logo, brand_color, industry, alternative_logos, snapshot_uri, created_at, updated_at
FROM %s
WHERE url = $1 AND created_at >= $2
ORDER BY created_at DESC
LIMIT 1`, c.table)

	var (
		rec  brand.Record
		alts []byte
	)
	err := c.pool.QueryRow(ctx, query, url, notBefore).Scan(
		&rec.URL,
		&rec.Logo,
		&rec.BrandColor,
		&rec.Industry,
		&alts,
		&rec.SnapshotURI,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return brand.Record{}, false, nil
	}
	if err != nil {
		return brand.Record{}, false, fmt.Errorf("select cached record: %w", err)
	}
	if len(alts) > 0 {
		if err := json.Unmarshal(alts, &rec.AlternativeLogos); err != nil {
			return brand.Record{}, false, fmt.Errorf("decode alternative logos: %w", err)
		}
	}
	return rec, true, nil
}

// Put inserts a new row for record.
func (c *Cache) Put(ctx context.Context, record brand.Record) error {
	if record.URL == "" {
		return fmt.Errorf("record url is required")
	}
	alts := record.AlternativeLogos
	if alts == nil {
		alts = []string{}
	}
	altsJSON, err := json.Marshal(alts)
	if err != nil {
		return fmt.Errorf("marshal alternative logos: %w", err)
	}
	now := c.clock.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	url,
	logo,
	brand_color,
	industry,
	alternative_logos,
	snapshot_uri,
	created_at,
	updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
)`, c.table)

	args := []any{
		record.URL,
		record.Logo,
		record.BrandColor,
		record.Industry,
		altsJSON,
		record.SnapshotURI,
		record.CreatedAt,
		record.UpdatedAt,
	}
	if _, err := c.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert cached record: %w", err)
	}
	return nil
}

// Patch rewrites the non-nil fields on every row stored for url.
func (c *Cache) Patch(ctx context.Context, url string, patch brand.RecordPatch) error {
	if patch.Empty() {
		return nil
	}
	query := fmt.Sprintf(`
UPDATE %s
SET logo = COALESCE($1, logo),
	brand_color = COALESCE($2, brand_color),
	updated_at = $3
WHERE url = $4`, c.table)

	tag, err := c.pool.Exec(ctx, query, patch.Logo, patch.BrandColor, c.clock.Now(), url)
	if err != nil {
		return fmt.Errorf("patch cached record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("patch %s: %w", url, brand.ErrNotFound)
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (c *Cache) Ping(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}
