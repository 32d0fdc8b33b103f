package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marcvidal/datapilot/internal/metrics"
	"github.com/marcvidal/datapilot/pkg/frame"
)

// Loader is the fetch side of the cache, satisfied by *Client.
type Loader interface {
	Load(ctx context.Context) (*frame.Frame, error)
}

// Cache memoizes one table snapshot for a TTL. Callers receive a deep
// copy so no tool can mutate the cached dataset.
type Cache struct {
	loader  Loader
	ttl     time.Duration
	metrics *metrics.Metrics

	mu        sync.Mutex
	cached    *frame.Frame
	fetchedAt time.Time
}

// NewCache wraps a loader with TTL memoization. A non-positive ttl
// disables caching entirely.
func NewCache(loader Loader, ttl time.Duration) *Cache {
	return &Cache{loader: loader, ttl: ttl}
}

// SetMetrics attaches an optional metrics sink.
func (c *Cache) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// Get returns the snapshot, refetching when the cached copy is missing
// or stale. A failed refresh does not fall back to stale data.
func (c *Cache) Get(ctx context.Context) (*frame.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && c.ttl > 0 && time.Since(c.fetchedAt) < c.ttl {
		log.Debug().Int("rows", c.cached.NumRows()).Msg("Snapshot served from cache")
		return c.cached.Copy(), nil
	}

	start := time.Now()
	f, err := c.loader.Load(ctx)
	if c.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		c.metrics.SnapshotLoadsTotal.WithLabelValues(status).Inc()
		c.metrics.SnapshotLoadDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}
	c.cached = f
	c.fetchedAt = time.Now()
	return f.Copy(), nil
}

// Invalidate drops the cached snapshot.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = nil
}
