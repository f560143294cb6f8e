// Package memory provides an in-process brand.Cache.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/brandprobe/internal/brand"
)

// Cache is a goroutine-safe map keyed by the literal submitted URL.
type Cache struct {
	mu      sync.RWMutex
	records map[string]brand.Record
	ttl     time.Duration
	clock   brand.Clock
}

// New constructs an empty cache. A zero ttl keeps records forever.
func New(ttl time.Duration, clock brand.Clock) *Cache {
	return &Cache{
		records: make(map[string]brand.Record),
		ttl:     ttl,
		clock:   clock,
	}
}

// Get returns the record for url if present and not expired.
func (c *Cache) Get(_ context.Context, url string) (brand.Record, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[url]
	if !ok || c.expired(rec) {
		return brand.Record{}, false, nil
	}
	return cloneRecord(rec), true, nil
}

// Put stores record, replacing any earlier record for the same URL.
func (c *Cache) Put(_ context.Context, record brand.Record) error {
	if record.URL == "" {
		return fmt.Errorf("record url is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[record.URL] = cloneRecord(record)
	return nil
}

// Patch rewrites the non-nil fields of the record stored under url.
func (c *Cache) Patch(_ context.Context, url string, patch brand.RecordPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[url]
	if !ok {
		return fmt.Errorf("patch %s: %w", url, brand.ErrNotFound)
	}
	rec = patch.Apply(rec)
	if c.clock != nil {
		rec.UpdatedAt = c.clock.Now()
	}
	c.records[url] = rec
	return nil
}

// Len reports how many records are held, including expired ones.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

func (c *Cache) expired(rec brand.Record) bool {
	if c.ttl <= 0 || c.clock == nil || rec.CreatedAt.IsZero() {
		return false
	}
	return c.clock.Now().Sub(rec.CreatedAt) > c.ttl
}

func cloneRecord(r brand.Record) brand.Record {
	r.AlternativeLogos = append([]string(nil), r.AlternativeLogos...)
	return r
}
