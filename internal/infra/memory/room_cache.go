package memory

import (
	"context"
	"encoding/json"
	"sync"

	"live-quiz-service/internal/domain"
)

// RoomCache is an in-process stand-in for the shared room cache. Rooms are
// stored encoded, so a load goes through the same round-trip as Redis.
type RoomCache struct {
	mu    sync.RWMutex
	rooms map[string][]byte
}

func NewRoomCache() *RoomCache {
	return &RoomCache{rooms: make(map[string][]byte)}
}

func (c *RoomCache) SaveRoom(_ context.Context, state domain.RoomState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.rooms[state.Code] = data
	c.mu.Unlock()
	return nil
}

func (c *RoomCache) LoadRoom(_ context.Context, code string) (domain.RoomState, error) {
	c.mu.RLock()
	data, ok := c.rooms[code]
	c.mu.RUnlock()
	if !ok {
		return domain.RoomState{}, domain.ErrRoomNotFound
	}
	var state domain.RoomState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.RoomState{}, err
	}
	return state, nil
}

func (c *RoomCache) DeleteRoom(_ context.Context, code string) error {
	c.mu.Lock()
	delete(c.rooms, code)
	c.mu.Unlock()
	return nil
}

// Len returns the number of cached rooms.
func (c *RoomCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rooms)
}
