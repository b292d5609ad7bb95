package memory

import (
	"context"
	"sync"
	"time"

	"live-quiz-service/internal/domain"
)

// ResultsCache holds results snapshots until their TTL elapses.
type ResultsCache struct {
	clock func() time.Time

	mu      sync.RWMutex
	entries map[string]cachedResults
}

type cachedResults struct {
	snap      domain.ResultsSnapshot
	expiresAt time.Time
}

func NewResultsCache() *ResultsCache {
	return &ResultsCache{clock: time.Now, entries: make(map[string]cachedResults)}
}

func (c *ResultsCache) GetResults(_ context.Context, sessionID string) (domain.ResultsSnapshot, error) {
	c.mu.RLock()
	entry, ok := c.entries[sessionID]
	c.mu.RUnlock()
	if !ok || (!entry.expiresAt.IsZero() && !entry.expiresAt.After(c.clock())) {
		return domain.ResultsSnapshot{}, domain.ErrResultsNotCached
	}
	return entry.snap, nil
}

func (c *ResultsCache) SetResults(_ context.Context, snap domain.ResultsSnapshot, ttl time.Duration) error {
	entry := cachedResults{snap: snap}
	if ttl > 0 {
		entry.expiresAt = c.clock().Add(ttl)
	}
	c.mu.Lock()
	c.entries[snap.SessionID] = entry
	c.mu.Unlock()
	return nil
}
