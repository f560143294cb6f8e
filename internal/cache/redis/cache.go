// Package rediscache provides a Redis-backed brand.Cache.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JakeFAU/brandprobe/internal/brand"
)

const defaultPrefix = "brandprobe:site:"

// Cache stores one JSON record per submitted URL.
type Cache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	clock  brand.Clock
}

// New connects to redisURL and verifies the connection with PING.
func New(ctx context.Context, redisURL, prefix string, ttl time.Duration, clock brand.Clock) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client, prefix, ttl, clock), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client redis.UniversalClient, prefix string, ttl time.Duration, clock brand.Clock) *Cache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Cache{client: client, prefix: prefix, ttl: ttl, clock: clock}
}

// Get returns the record for url.
func (c *Cache) Get(ctx context.Context, url string) (brand.Record, bool, error) {
	raw, err := c.client.Get(ctx, c.key(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return brand.Record{}, false, nil
	}
	if err != nil {
		return brand.Record{}, false, fmt.Errorf("redis get: %w", err)
	}
	var rec brand.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return brand.Record{}, false, fmt.Errorf("decode cached record: %w", err)
	}
	return rec, true, nil
}

// Put stores record with the configured TTL. A later Put for the same URL overwrites it.
func (c *Cache) Put(ctx context.Context, record brand.Record) error {
	if record.URL == "" {
		return fmt.Errorf("record url is required")
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode cached record: %w", err)
	}
	if err := c.client.Set(ctx, c.key(record.URL), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Patch rewrites the non-nil fields of the record under url, keeping its TTL.
func (c *Cache) Patch(ctx context.Context, url string, patch brand.RecordPatch) error {
	rec, ok, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("patch %s: %w", url, brand.ErrNotFound)
	}
	rec = patch.Apply(rec)
	if c.clock != nil {
		rec.UpdatedAt = c.clock.Now()
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode cached record: %w", err)
	}
	if err := c.client.SetArgs(ctx, c.key(url), raw, redis.SetArgs{KeepTTL: true}).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close closes the client.
func (c *Cache) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}

func (c *Cache) key(url string) string {
	return c.prefix + url
}
