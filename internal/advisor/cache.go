package advisor

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// cacheKey identifies a constructed HTTP advisor by its endpoint and
// request timeout, per spec.md §4.9's resolution rule.
type cacheKey struct {
	endpoint string
	timeout  time.Duration
}

// Cache memoizes constructed advisors so repeated reconciles against the
// same endpoint reuse one HTTP client instead of dialing fresh each time.
type Cache struct {
	mu    sync.Mutex
	items map[cacheKey]Advisor
	log   *logrus.Entry
}

func NewCache(log *logrus.Entry) *Cache {
	return &Cache{items: make(map[cacheKey]Advisor), log: log}
}

// GetOrBuild returns the cached advisor for (endpoint, timeout), building
// one with build if absent.
func (c *Cache) GetOrBuild(endpoint string, timeout time.Duration, build func() Advisor) Advisor {
	key := cacheKey{endpoint: endpoint, timeout: timeout}

	c.mu.Lock()
	defer c.mu.Unlock()

	if a, ok := c.items[key]; ok {
		return a
	}
	a := build()
	c.items[key] = a
	if c.log != nil {
		c.log.WithField("endpoint", endpoint).WithField("timeout", timeout).Debug("constructed new advisor client")
	}
	return a
}
