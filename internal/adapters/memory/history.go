package memory

import (
	"context"
	"sync"

	"github.com/bluele/gcache"

	"trustscan/internal/domain"
)

// DefaultHistoryCapacity bounds the number of domains History remembers.
const DefaultHistoryCapacity = 10000

// History keeps the latest scan per registrable domain. Once capacity
// domains are held, the least recently used one is forgotten.
type History struct {
	mu     sync.Mutex
	latest gcache.Cache
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{latest: gcache.New(capacity).LRU().Build()}
}

func (h *History) Save(_ context.Context, target domain.ScanTarget, result domain.ScanResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.get(target.Registrable); ok && prev.ScannedAt.After(result.ScannedAt) {
		return nil
	}
	return h.latest.Set(target.Registrable, result.Clone())
}

func (h *History) LatestByDomain(_ context.Context, registrable string) (domain.ScanResult, bool, error) {
	res, ok := h.get(registrable)
	if !ok {
		return domain.ScanResult{}, false, nil
	}
	return res.Clone(), true, nil
}

func (h *History) get(registrable string) (domain.ScanResult, bool) {
	v, err := h.latest.Get(registrable)
	if err != nil {
		return domain.ScanResult{}, false
	}
	res, ok := v.(domain.ScanResult)
	return res, ok
}
