// Package cache holds ResultCache implementations.
package cache

import (
	"context"
	"time"

	"github.com/bluele/gcache"

	"trustscan/internal/domain"
)

const DefaultTTL = 24 * time.Hour

// LRU is a capacity-bounded in-process cache. Entries expire TTL after they
// were set and are dropped lazily on read or when evicted for capacity.
type LRU struct {
	c gcache.Cache
}

func NewLRU(capacity int, ttl time.Duration) *LRU {
	return newLRU(capacity, ttl, gcache.NewRealClock())
}

func newLRU(capacity int, ttl time.Duration, clock gcache.Clock) *LRU {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LRU{c: gcache.New(capacity).LRU().Expiration(ttl).Clock(clock).Build()}
}

func (l *LRU) Get(_ context.Context, key string) (domain.ScanResult, bool) {
	v, err := l.c.Get(key)
	if err != nil {
		return domain.ScanResult{}, false
	}
	res, ok := v.(domain.ScanResult)
	if !ok {
		return domain.ScanResult{}, false
	}
	return res.Clone(), true
}

func (l *LRU) Set(_ context.Context, key string, result domain.ScanResult) {
	_ = l.c.Set(key, result.Clone())
}

func (l *LRU) Evict(_ context.Context, key string) {
	l.c.Remove(key)
}
