package cache

import (
	"sync"
	"time"

	"github.com/frioserv/maintenance-service/internal/models"
)

// RuleCache keeps the active pricing rule snapshot in memory so every
// quote does not hit the store. Admin edits go through Invalidate; the
// TTL bounds staleness when they don't.
type RuleCache struct {
	mu        sync.RWMutex
	rule      *models.PricingRule
	fetchedAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

func NewRuleCache(ttl time.Duration, now func() time.Time) *RuleCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &RuleCache{ttl: ttl, now: now}
}

func (c *RuleCache) Get() (models.PricingRule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.rule == nil || c.now().Sub(c.fetchedAt) > c.ttl {
		return models.PricingRule{}, false
	}
	return *c.rule, true
}

func (c *RuleCache) Set(rule models.PricingRule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rule = &rule
	c.fetchedAt = c.now()
}

func (c *RuleCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rule = nil
}
