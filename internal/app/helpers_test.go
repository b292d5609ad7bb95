package app_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
	"live-quiz-service/internal/logging"
)

const (
	hostConn = "c-host"
	hostID   = "host"
)

type harness struct {
	svc      *app.GameService
	registry *app.SessionRegistry
	sched    *manualScheduler
	clock    *testClock
	notifier *fakeNotifier
	cache    *memory.RoomCache
	records  *memory.SessionRecordStore
	history  *memory.HistoryStore
	results  *memory.ResultsCache
	teams    *memory.TeamDirectory
	quizzes  *memory.QuizRepository
}

// newHarness wires a GameService on in-memory collaborators. customize may
// swap dependencies before the service is built.
func newHarness(t *testing.T, customize func(*harness, *app.Dependencies), opts ...app.Option) *harness {
	t.Helper()
	h := &harness{
		sched:    &manualScheduler{},
		clock:    &testClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		notifier: newFakeNotifier(),
		cache:    memory.NewRoomCache(),
		records:  memory.NewSessionRecordStore(),
		history:  memory.NewHistoryStore(),
		results:  memory.NewResultsCache(),
		teams:    memory.NewTeamDirectory(),
		quizzes:  memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute),
	}
	h.registry = app.NewSessionRegistry(h.cache, logging.Discard())
	deps := app.Dependencies{
		Registry: h.registry,
		Quizzes:  h.quizzes,
		Teams:    h.teams,
		Records:  h.records,
		History:  h.history,
		Results:  h.results,
		Notifier: h.notifier,
	}
	if customize != nil {
		customize(h, &deps)
	}
	base := []app.Option{
		app.WithClock(h.clock.Now),
		app.WithScheduler(h.sched),
		app.WithIDs(&sequentialIDs{}),
	}
	h.svc = app.NewGameService(deps, append(base, opts...)...)
	return h
}

func (h *harness) createRoom(t *testing.T, quizID string, settings domain.Settings) string {
	t.Helper()
	code, err := h.svc.CreateRoom(context.Background(), hostConn, app.CreateRoomRequest{
		QuizID:   quizID,
		HostID:   hostID,
		HostName: "Host",
		Settings: settings,
	})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return code
}

func (h *harness) join(t *testing.T, code, connID, userID, name string) {
	t.Helper()
	if _, err := h.svc.JoinRoom(context.Background(), connID, app.JoinRequest{
		RoomID:   code,
		Username: name,
		UserID:   userID,
	}); err != nil {
		t.Fatalf("join %s: %v", userID, err)
	}
}

func (h *harness) snapshot(t *testing.T, code string) domain.RoomState {
	t.Helper()
	st, err := h.svc.Snapshot(context.Background(), code)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return st
}

// twoPlayerRoom creates a room on quiz-1 with players a and b joined.
func (h *harness) twoPlayerRoom(t *testing.T, settings domain.Settings) string {
	t.Helper()
	code := h.createRoom(t, "quiz-1", settings)
	h.join(t, code, "c-a", "a", "Alice")
	h.join(t, code, "c-b", "b", "Bob")
	return code
}

func (h *harness) start(t *testing.T, code string) {
	t.Helper()
	if err := h.svc.StartGame(context.Background(), hostConn, code); err != nil {
		t.Fatalf("start: %v", err)
	}
}

func (h *harness) answer(t *testing.T, code, connID, userID string, option int) {
	t.Helper()
	if err := h.svc.SubmitAnswer(context.Background(), connID, code, userID, option); err != nil {
		t.Fatalf("answer %s: %v", userID, err)
	}
}

func participant(t *testing.T, st domain.RoomState, userID string) domain.Participant {
	t.Helper()
	p := st.Participant(userID)
	if p == nil {
		t.Fatalf("participant %s not found", userID)
	}
	return *p
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID: "quiz-1",
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "What is 2 + 2?",
					Options: []domain.Option{
						{ID: "o1", Text: "3"},
						{ID: "o2", Text: "4", Correct: true},
						{ID: "o3", Text: "5"},
					},
					Points:    1000,
					TimeLimit: 30,
				},
				{
					ID:     "q2",
					Prompt: "Capital of France?",
					Options: []domain.Option{
						{ID: "o1", Text: "Paris", Correct: true},
						{ID: "o2", Text: "Lyon"},
					},
					Points:    500,
					TimeLimit: 20,
				},
			},
		},
		"quiz-empty": {ID: "quiz-empty"},
	}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// manualScheduler records timers; tests fire them explicitly.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (m *manualScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	task := &manualTask{d: d, f: f}
	m.tasks = append(m.tasks, task)
	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		if task.stopped || task.fired {
			return false
		}
		task.stopped = true
		return true
	}
}

// pending returns armed timers, shortest first.
func (m *manualScheduler) pending() []*manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*manualTask
	for _, task := range m.tasks {
		if !task.stopped && !task.fired {
			out = append(out, task)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].d < out[j].d })
	return out
}

// fireNext runs the shortest armed timer and returns its duration.
func (m *manualScheduler) fireNext(t *testing.T) time.Duration {
	t.Helper()
	pending := m.pending()
	if len(pending) == 0 {
		t.Fatalf("no timer armed")
	}
	task := pending[0]
	m.mu.Lock()
	task.fired = true
	m.mu.Unlock()
	task.f()
	return task.d
}

// fireStopped runs callbacks of cancelled timers, simulating a timer that
// fired just as it was being stopped.
func (m *manualScheduler) fireStopped() int {
	m.mu.Lock()
	var stale []*manualTask
	for _, task := range m.tasks {
		if task.stopped {
			stale = append(stale, task)
		}
	}
	m.mu.Unlock()
	for _, task := range stale {
		task.f()
	}
	return len(stale)
}

type sequentialIDs struct {
	mu sync.Mutex
	n  int
}

func (g *sequentialIDs) next() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.n
}

func (g *sequentialIDs) JoinCode() string  { return fmt.Sprintf("%06d", 100000+g.next()) }
func (g *sequentialIDs) SessionID() string { return fmt.Sprintf("session-%d", g.next()) }
func (g *sequentialIDs) GuestID() string   { return fmt.Sprintf("guest-%d", g.next()) }

type fakeNotifier struct {
	mu    sync.Mutex
	conns map[string][]domain.Event
	teams map[string][]domain.Event
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		conns: make(map[string][]domain.Event),
		teams: make(map[string][]domain.Event),
	}
}

func (n *fakeNotifier) Send(connID string, event domain.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.conns[connID] = append(n.conns[connID], event)
}

func (n *fakeNotifier) SendTeam(teamID string, event domain.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.teams[teamID] = append(n.teams[teamID], event)
}

func (n *fakeNotifier) ofType(connID, typ string) []domain.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.Event
	for _, ev := range n.conns[connID] {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (n *fakeNotifier) lastState(t *testing.T, connID string) domain.StatePayload {
	t.Helper()
	states := n.ofType(connID, domain.EventState)
	if len(states) == 0 {
		t.Fatalf("no state pushed to %s", connID)
	}
	return states[len(states)-1].Payload.(domain.StatePayload)
}

func (n *fakeNotifier) team(teamID string) []domain.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Event(nil), n.teams[teamID]...)
}

// failingHistory rejects every append.
type failingHistory struct {
	*memory.HistoryStore
}

func (failingHistory) AppendHistory(context.Context, []domain.HistoryRecord) error {
	return errors.New("history table unavailable")
}

// slowStartRecords holds back in-progress writes so they land after the
// writes that follow them.
type slowStartRecords struct {
	*memory.SessionRecordStore
	delay time.Duration
}

func (r slowStartRecords) UpdateSessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus, at time.Time) error {
	if status == domain.SessionInProgress {
		time.Sleep(r.delay)
	}
	return r.SessionRecordStore.UpdateSessionStatus(ctx, sessionID, status, at)
}

// ctxRecords fails reads once the caller's context is done, like a real
// database driver would.
type ctxRecords struct {
	*memory.SessionRecordStore
}

func (r ctxRecords) GetSession(ctx context.Context, sessionID string) (domain.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionRecord{}, err
	}
	return r.SessionRecordStore.GetSession(ctx, sessionID)
}
