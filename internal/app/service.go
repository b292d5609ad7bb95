package app

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/logging"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// TeamDirectory answers team-membership checks for team-scoped rooms.
type TeamDirectory interface {
	IsMember(ctx context.Context, teamID, userID string) (bool, error)
}

// SessionRecordStore persists the durable counterpart of a room.
type SessionRecordStore interface {
	CreateSession(ctx context.Context, rec domain.SessionRecord) error
	UpdateSessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus, at time.Time) error
	CompleteSession(ctx context.Context, snap domain.ResultsSnapshot) error
	GetSession(ctx context.Context, sessionID string) (domain.SessionRecord, error)
}

// HistoryStore appends and reads immutable per-question history records.
type HistoryStore interface {
	AppendHistory(ctx context.Context, records []domain.HistoryRecord) error
	ListHistory(ctx context.Context, sessionID, userID string) ([]domain.HistoryRecord, error)
}

// ResultsCache holds finalized results snapshots for a bounded time.
// GetResults returns domain.ErrResultsNotCached on a miss.
type ResultsCache interface {
	GetResults(ctx context.Context, sessionID string) (domain.ResultsSnapshot, error)
	SetResults(ctx context.Context, snap domain.ResultsSnapshot, ttl time.Duration) error
}

// Notifier delivers events to live connections. Implementations must not block.
type Notifier interface {
	Send(connID string, event domain.Event)
	SendTeam(teamID string, event domain.Event)
}

// Metrics receives game-loop counters.
type Metrics interface {
	RoomOpened()
	RoomClosed()
	PlayerJoined()
	AnswerSubmitted()
	RoundCompleted()
	GameFinished()
	PersistenceFailed(kind string)
}

// Dependencies are the collaborators a GameService needs.
type Dependencies struct {
	Registry *SessionRegistry
	Quizzes  QuizRepository
	Teams    TeamDirectory
	Records  SessionRecordStore
	History  HistoryStore
	Results  ResultsCache
	Notifier Notifier
}

// GameService runs live rooms: lifecycle events, the round state machine,
// scoring and the hand-off to durable storage.
type GameService struct {
	registry *SessionRegistry
	quizzes  QuizRepository
	teams    TeamDirectory
	records  SessionRecordStore
	history  HistoryStore
	results  ResultsCache
	notifier Notifier

	ids     IDGenerator
	sched   Scheduler
	metrics Metrics
	log     logrus.FieldLogger
	now     func() time.Time

	maxPlayers     int
	resultsDelay   time.Duration
	resultsTTL     time.Duration
	persistTimeout time.Duration

	pending   sync.WaitGroup
	resultsSF singleflight.Group
}

// Option customizes a GameService.
type Option func(*GameService)

// WithClock replaces time.Now; used for deterministic scoring in tests.
func WithClock(now func() time.Time) Option {
	return func(s *GameService) { s.now = now }
}

// WithScheduler replaces the wall-clock timer scheduler.
func WithScheduler(sched Scheduler) Option {
	return func(s *GameService) { s.sched = sched }
}

func WithIDs(ids IDGenerator) Option {
	return func(s *GameService) { s.ids = ids }
}

func WithMetrics(m Metrics) Option {
	return func(s *GameService) { s.metrics = m }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *GameService) { s.log = log }
}

// WithMaxPlayers caps non-host participants per room.
func WithMaxPlayers(n int) Option {
	return func(s *GameService) {
		if n > 0 {
			s.maxPlayers = n
		}
	}
}

// WithResultsDelay sets how long the results phase lasts under auto-advance.
func WithResultsDelay(d time.Duration) Option {
	return func(s *GameService) { s.resultsDelay = d }
}

// WithResultsTTL sets the expiry of cached results snapshots.
func WithResultsTTL(d time.Duration) Option {
	return func(s *GameService) { s.resultsTTL = d }
}

// WithPersistTimeout bounds every durable write.
func WithPersistTimeout(d time.Duration) Option {
	return func(s *GameService) {
		if d > 0 {
			s.persistTimeout = d
		}
	}
}

const (
	defaultMaxPlayers     = 50
	defaultResultsDelay   = 8 * time.Second
	defaultResultsTTL     = 24 * time.Hour
	defaultPersistTimeout = 5 * time.Second
)

func NewGameService(deps Dependencies, opts ...Option) *GameService {
	s := &GameService{
		registry:       deps.Registry,
		quizzes:        deps.Quizzes,
		teams:          deps.Teams,
		records:        deps.Records,
		history:        deps.History,
		results:        deps.Results,
		notifier:       deps.Notifier,
		ids:            NewRandomIDs(),
		sched:          clockScheduler{},
		metrics:        noopMetrics{},
		log:            logging.Discard(),
		now:            time.Now,
		maxPlayers:     defaultMaxPlayers,
		resultsDelay:   defaultResultsDelay,
		resultsTTL:     defaultResultsTTL,
		persistTimeout: defaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Flush waits for in-flight background persistence writes.
func (s *GameService) Flush() {
	s.pending.Wait()
}

// Snapshot returns a copy of a room's current state.
func (s *GameService) Snapshot(ctx context.Context, code string) (domain.RoomState, error) {
	room, err := s.lockRoom(ctx, code)
	if err != nil {
		return domain.RoomState{}, err
	}
	defer room.mu.Unlock()
	return cloneState(room.state), nil
}

// lockRoom loads a room and returns it locked. Rooms rehydrated from the
// shared cache get their timers re-armed here.
func (s *GameService) lockRoom(ctx context.Context, code string) (*Room, error) {
	room, err := s.registry.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	room.mu.Lock()
	if room.closed {
		room.mu.Unlock()
		return nil, domain.ErrRoomNotFound
	}
	if room.needsRecovery {
		s.metrics.RoomOpened()
		s.recoverTimersLocked(room)
	}
	return room, nil
}

// commitLocked mirrors the room to the shared cache and pushes state to
// every online participant.
func (s *GameService) commitLocked(ctx context.Context, room *Room) {
	s.registry.Save(ctx, room)
	s.pushStateLocked(room, "")
}

func (s *GameService) roomLog(room *Room) logrus.FieldLogger {
	return s.log.WithFields(logrus.Fields{
		"room":    room.state.Code,
		"session": room.state.SessionID,
	})
}

type noopMetrics struct{}

func (noopMetrics) RoomOpened()              {}
func (noopMetrics) RoomClosed()              {}
func (noopMetrics) PlayerJoined()            {}
func (noopMetrics) AnswerSubmitted()         {}
func (noopMetrics) RoundCompleted()          {}
func (noopMetrics) GameFinished()            {}
func (noopMetrics) PersistenceFailed(string) {}
