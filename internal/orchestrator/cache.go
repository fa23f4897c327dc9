package orchestrator

import (
	"strings"
	"sync"

	"inkwell-client/internal/model"
)

// resultCache is the session-lifetime response cache: one entry per
// fingerprint, last write wins, no TTL. Its lifetime is the
// orchestrator instance, owned by the composition root.
type resultCache struct {
	mu      sync.RWMutex
	entries map[string]interface{}
}

func newResultCache() *resultCache {
	return &resultCache{entries: make(map[string]interface{})}
}

func (c *resultCache) get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *resultCache) set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// findApproximate scans for an entry of the same mode whose key length
// is within tolerance of key's. This deliberately loose heuristic can
// return an unrelated correction for a same-length input; it trades
// accuracy for the immediate response the stale-while-revalidate path
// is built around.
func (c *resultCache) findApproximate(mode model.Mode, key string, tolerance int) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p := string(mode) + "|"
	for k, v := range c.entries {
		if k == key || !strings.HasPrefix(k, p) {
			continue
		}
		d := len(k) - len(key)
		if d < 0 {
			d = -d
		}
		if d <= tolerance {
			return v, true
		}
	}
	return nil, false
}
