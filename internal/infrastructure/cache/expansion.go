// Package cache provides the in-process TTL cache for query expansions.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/normanhq/norman/internal/core/domain"
)

const (
	defaultTTL             = 10 * time.Minute
	defaultCleanupInterval = 5 * time.Minute
)

// ExpansionCache keeps recent translate/expand results so repeated
// questions skip the LLM round-trip.
type ExpansionCache struct {
	store *gocache.Cache
}

func NewExpansionCache(ttl time.Duration) *ExpansionCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ExpansionCache{store: gocache.New(ttl, defaultCleanupInterval)}
}

func (c *ExpansionCache) Get(question string) (domain.Expansion, bool) {
	v, ok := c.store.Get(question)
	if !ok {
		return domain.Expansion{}, false
	}
	exp, ok := v.(domain.Expansion)
	return exp, ok
}

func (c *ExpansionCache) Set(question string, exp domain.Expansion) {
	c.store.SetDefault(question, exp)
}
