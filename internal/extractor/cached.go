package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cesargomez89/downtil/internal/domain"
)

type Cache interface {
	GetCache(key string) ([]byte, error)
	SetCache(key string, data []byte, ttl time.Duration) error
	ClearCache() error
}

// Cached memoizes Probe results so the detail, start and thumbnail routes
// for one source share a single extractor run.
type Cached struct {
	Extractor
	cache    Cache
	cacheTTL time.Duration
}

func NewCached(next Extractor, cache Cache, cacheTTL time.Duration) *Cached {
	return &Cached{
		Extractor: next,
		cache:     cache,
		cacheTTL:  cacheTTL,
	}
}

func (c *Cached) Probe(ctx context.Context, url string) (*domain.Metadata, error) {
	cacheKey := fmt.Sprintf("probe:%s", url)

	data, err := c.cache.GetCache(cacheKey)
	if err != nil {
		return nil, err
	}
	if data != nil {
		var meta domain.Metadata
		if err := json.Unmarshal(data, &meta); err == nil {
			return &meta, nil
		}
	}

	meta, err := c.Extractor.Probe(ctx, url)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(meta); err == nil {
		_ = c.cache.SetCache(cacheKey, data, c.cacheTTL)
	}

	return meta, nil
}

func (c *Cached) ClearCache() error {
	return c.cache.ClearCache()
}
