package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"live-quiz-service/internal/domain"
)

// ResultsCache stores finalized results as SET results:{sessionID} {json} EX ttl.
type ResultsCache struct {
	client *redis.Client
}

func NewResultsCache(client *redis.Client) *ResultsCache {
	return &ResultsCache{client: client}
}

func (c *ResultsCache) GetResults(ctx context.Context, sessionID string) (domain.ResultsSnapshot, error) {
	raw, err := c.client.Get(ctx, c.key(sessionID)).Bytes()
	if isMiss(err) {
		return domain.ResultsSnapshot{}, domain.ErrResultsNotCached
	}
	if err != nil {
		return domain.ResultsSnapshot{}, err
	}
	var snap domain.ResultsSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.ResultsSnapshot{}, fmt.Errorf("decode results %s: %w", sessionID, err)
	}
	return snap, nil
}

func (c *ResultsCache) SetResults(ctx context.Context, snap domain.ResultsSnapshot, ttl time.Duration) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode results %s: %w", snap.SessionID, err)
	}
	return c.client.Set(ctx, c.key(snap.SessionID), raw, ttl).Err()
}

func (c *ResultsCache) key(sessionID string) string {
	return "results:" + sessionID
}
