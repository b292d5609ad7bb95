package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"live-quiz-service/internal/domain"
)

// RoomCache mirrors live room state in Redis so another process can pick a
// room up after a restart. Rooms are stored as SET room:{code} {json} EX ttl;
// the TTL is refreshed on every save so abandoned rooms expire on their own.
type RoomCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRoomCache(client *redis.Client, ttl time.Duration) *RoomCache {
	return &RoomCache{client: client, ttl: ttl}
}

func (c *RoomCache) SaveRoom(ctx context.Context, state domain.RoomState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", state.Code, err)
	}
	return c.client.Set(ctx, c.key(state.Code), raw, c.ttl).Err()
}

func (c *RoomCache) LoadRoom(ctx context.Context, code string) (domain.RoomState, error) {
	raw, err := c.client.Get(ctx, c.key(code)).Bytes()
	if isMiss(err) {
		return domain.RoomState{}, domain.ErrRoomNotFound
	}
	if err != nil {
		return domain.RoomState{}, err
	}
	var state domain.RoomState
	if err := json.Unmarshal(raw, &state); err != nil {
		return domain.RoomState{}, fmt.Errorf("decode room %s: %w", code, err)
	}
	return state, nil
}

func (c *RoomCache) DeleteRoom(ctx context.Context, code string) error {
	return c.client.Del(ctx, c.key(code)).Err()
}

func (c *RoomCache) key(code string) string {
	return "room:" + code
}
