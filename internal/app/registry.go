package app

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"live-quiz-service/internal/domain"
)

// RoomCache is the shared cache that mirrors live rooms across processes.
// LoadRoom returns domain.ErrRoomNotFound on a miss.
type RoomCache interface {
	SaveRoom(ctx context.Context, state domain.RoomState) error
	LoadRoom(ctx context.Context, code string) (domain.RoomState, error)
	DeleteRoom(ctx context.Context, code string) error
}

// Room is one live room. All access to state and timers goes through mu.
type Room struct {
	mu            sync.Mutex
	state         domain.RoomState
	questionTimer *timerTask
	advanceTimer  *timerTask
	closed        bool
	needsRecovery bool
}

func newRoom(state domain.RoomState) *Room {
	normalizeState(&state)
	return &Room{state: state}
}

func (r *Room) cancelQuestionTimerLocked() {
	r.questionTimer.cancel()
	r.questionTimer = nil
}

func (r *Room) cancelAdvanceTimerLocked() {
	r.advanceTimer.cancel()
	r.advanceTimer = nil
}

func (r *Room) cancelTimersLocked() {
	r.cancelQuestionTimerLocked()
	r.cancelAdvanceTimerLocked()
}

// shutdownLocked cancels timers and marks the room so pending callbacks and
// handlers holding a stale pointer back off.
func (r *Room) shutdownLocked() {
	r.cancelTimersLocked()
	r.closed = true
}

// SessionRegistry keeps live rooms in process memory and mirrors every
// mutation to a shared cache, so another process can rehydrate a room after
// a restart. Cache failures are logged and not retried.
//
// Single-writer-per-room is assumed: two processes mutating the same room
// race and the cache keeps the last write.
type SessionRegistry struct {
	cache RoomCache
	log   logrus.FieldLogger

	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewSessionRegistry(cache RoomCache, log logrus.FieldLogger) *SessionRegistry {
	return &SessionRegistry{
		cache: cache,
		log:   log,
		rooms: make(map[string]*Room),
	}
}

// Create stores a new room locally and in the shared cache.
func (r *SessionRegistry) Create(ctx context.Context, state domain.RoomState) *Room {
	room := newRoom(state)
	r.mu.Lock()
	r.rooms[state.Code] = room
	r.mu.Unlock()

	if err := r.cache.SaveRoom(ctx, room.state); err != nil {
		r.log.WithError(err).WithField("room", state.Code).Warn("room cache write failed")
	}
	return room
}

// Exists reports whether code is taken locally or in the shared cache.
func (r *SessionRegistry) Exists(ctx context.Context, code string) bool {
	r.mu.RLock()
	_, ok := r.rooms[code]
	r.mu.RUnlock()
	if ok {
		return true
	}
	_, err := r.cache.LoadRoom(ctx, code)
	return err == nil
}

// Get returns the local room or rehydrates it from the shared cache.
func (r *SessionRegistry) Get(ctx context.Context, code string) (*Room, error) {
	r.mu.RLock()
	room, ok := r.rooms[code]
	r.mu.RUnlock()
	if ok {
		return room, nil
	}

	state, err := r.cache.LoadRoom(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		r.log.WithError(err).WithField("room", code).Warn("room cache read failed")
		return nil, domain.ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another caller may have rehydrated it meanwhile.
	if existing, ok := r.rooms[code]; ok {
		return existing, nil
	}
	room = newRoom(state)
	room.needsRecovery = true
	// Connections belonged to the previous process; participants come back
	// through rejoin.
	for i := range room.state.Participants {
		room.state.Participants[i].Online = false
		room.state.Participants[i].ConnID = ""
	}
	r.rooms[code] = room
	r.log.WithField("room", code).Info("room rehydrated from cache")
	return room, nil
}

// Save mirrors the room to the shared cache. Caller holds room.mu.
func (r *SessionRegistry) Save(ctx context.Context, room *Room) {
	if err := r.cache.SaveRoom(ctx, room.state); err != nil {
		r.log.WithError(err).WithField("room", room.state.Code).Warn("room cache write failed")
	}
}

// Remove cancels the room's timers and deletes both copies. It reports
// whether a live local room was dropped; removing an unknown code is a no-op.
func (r *SessionRegistry) Remove(ctx context.Context, code string) bool {
	r.mu.Lock()
	room, ok := r.rooms[code]
	delete(r.rooms, code)
	r.mu.Unlock()

	live := false
	if ok {
		room.mu.Lock()
		live = !room.closed
		room.shutdownLocked()
		room.mu.Unlock()
	}
	r.deleteCached(ctx, code)
	return live
}

// forget drops a room whose lock the caller already holds and has shut down.
func (r *SessionRegistry) forget(ctx context.Context, room *Room) {
	code := room.state.Code
	r.mu.Lock()
	if r.rooms[code] == room {
		delete(r.rooms, code)
	}
	r.mu.Unlock()
	r.deleteCached(ctx, code)
}

func (r *SessionRegistry) deleteCached(ctx context.Context, code string) {
	if err := r.cache.DeleteRoom(ctx, code); err != nil {
		r.log.WithError(err).WithField("room", code).Warn("room cache delete failed")
	}
}

// RoomsByConnection returns every local room with a participant attached
// to connID. Disconnects carry only the connection id.
func (r *SessionRegistry) RoomsByConnection(connID string) []*Room {
	r.mu.RLock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()

	var found []*Room
	for _, room := range rooms {
		room.mu.Lock()
		if !room.closed && room.state.ByConn(connID) != nil {
			found = append(found, room)
		}
		room.mu.Unlock()
	}
	return found
}

// Len returns the number of locally held rooms.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// normalizeState restores the maps a cache round-trip may leave nil.
func normalizeState(st *domain.RoomState) {
	if st.Answers == nil {
		st.Answers = make(map[string][]domain.Attempt)
	}
	if st.RoundGains == nil {
		st.RoundGains = make(map[string]int)
	}
	if st.Participants == nil {
		st.Participants = []domain.Participant{}
	}
}

func cloneState(st domain.RoomState) domain.RoomState {
	out := st
	out.Participants = append([]domain.Participant(nil), st.Participants...)
	out.AnswerCounts = append([]int(nil), st.AnswerCounts...)
	out.Deck = append([]domain.Question(nil), st.Deck...)
	out.Rankings = append([]domain.FinalResult(nil), st.Rankings...)
	out.Answers = make(map[string][]domain.Attempt, len(st.Answers))
	for k, v := range st.Answers {
		out.Answers[k] = append([]domain.Attempt(nil), v...)
	}
	out.RoundGains = make(map[string]int, len(st.RoundGains))
	for k, v := range st.RoundGains {
		out.RoundGains[k] = v
	}
	return out
}
