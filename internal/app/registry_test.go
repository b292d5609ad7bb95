package app

import (
	"context"
	"errors"
	"testing"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
	"live-quiz-service/internal/logging"
)

func TestRegistryRehydratesFromCache(t *testing.T) {
	ctx := context.Background()
	cache := memory.NewRoomCache()
	first := NewSessionRegistry(cache, logging.Discard())
	first.Create(ctx, domain.RoomState{
		Code:         "123456",
		HostID:       "host",
		Participants: []domain.Participant{{UserID: "host", ConnID: "c-host", Online: true, Role: domain.RoleHost}},
		Phase:        domain.PhaseLobby,
	})

	second := NewSessionRegistry(cache, logging.Discard())
	if !second.Exists(ctx, "123456") {
		t.Fatalf("expected code to be taken via the shared cache")
	}
	room, err := second.Get(ctx, "123456")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !room.needsRecovery {
		t.Fatalf("rehydrated room must be flagged for timer recovery")
	}
	if room.state.Answers == nil || room.state.RoundGains == nil {
		t.Fatalf("rehydrated maps must be usable")
	}
	if host := room.state.Participants[0]; host.Online || host.ConnID != "" {
		t.Fatalf("rehydrated participants must wait for rejoin, got %+v", host)
	}
	again, _ := second.Get(ctx, "123456")
	if again != room {
		t.Fatalf("second lookup should return the same room")
	}

	if _, err := second.Get(ctx, "000000"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestRegistryRoomsByConnectionAndRemove(t *testing.T) {
	ctx := context.Background()
	cache := memory.NewRoomCache()
	reg := NewSessionRegistry(cache, logging.Discard())
	reg.Create(ctx, domain.RoomState{
		Code:         "111111",
		Participants: []domain.Participant{{UserID: "a", ConnID: "c-a", Online: true}},
	})
	reg.Create(ctx, domain.RoomState{
		Code:         "222222",
		Participants: []domain.Participant{{UserID: "a", ConnID: "c-a", Online: true}},
	})

	if rooms := reg.RoomsByConnection("c-a"); len(rooms) != 2 {
		t.Fatalf("expected both rooms for the connection, got %d", len(rooms))
	}
	reg.Remove(ctx, "222222")
	rooms := reg.RoomsByConnection("c-a")
	if len(rooms) != 1 || rooms[0].state.Code != "111111" {
		t.Fatalf("expected to find room by connection")
	}
	room := rooms[0]
	if len(reg.RoomsByConnection("c-z")) != 0 {
		t.Fatalf("unknown connection should not match")
	}

	if !reg.Remove(ctx, "111111") {
		t.Fatalf("first remove should drop a live room")
	}
	if reg.Remove(ctx, "111111") {
		t.Fatalf("second remove should be a no-op")
	}
	if !room.closed || reg.Len() != 0 || cache.Len() != 0 {
		t.Fatalf("room not fully removed: closed=%v local=%d cached=%d", room.closed, reg.Len(), cache.Len())
	}
	if len(reg.RoomsByConnection("c-a")) != 0 {
		t.Fatalf("removed room still reachable")
	}
}
