package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"live-quiz-service/internal/domain"
)

func TestRoomCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := NewRoomCache()

	state := domain.RoomState{
		Code:          "123456",
		QuestionIndex: 0,
		Phase:         domain.PhaseQuestion,
		Answers: map[string][]domain.Attempt{
			"u1": {{OptionIndex: 1, RemainingTime: 12.5}},
		},
	}
	if err := cache.SaveRoom(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := cache.LoadRoom(ctx, "123456")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Phase != domain.PhaseQuestion || got.Answers["u1"][0].OptionIndex != 1 {
		t.Fatalf("unexpected state after round trip: %+v", got)
	}

	_ = cache.DeleteRoom(ctx, "123456")
	if _, err := cache.LoadRoom(ctx, "123456"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound after delete, got %v", err)
	}
}

func TestSessionRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionRecordStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if err := store.CreateSession(ctx, domain.SessionRecord{ID: "s1", Status: domain.SessionWaiting}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.UpdateSessionStatus(ctx, "s1", domain.SessionInProgress, now); err != nil {
		t.Fatalf("update: %v", err)
	}
	err := store.CompleteSession(ctx, domain.ResultsSnapshot{
		SessionID:      "s1",
		TotalQuestions: 3,
		Rankings:       []domain.FinalResult{{Rank: 1, UserID: "u1", Score: 1500}},
		CompletedAt:    now.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	rec, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Status != domain.SessionCompleted || rec.Questions != 3 || len(rec.Results) != 1 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.StartedAt == nil || !rec.StartedAt.Equal(now) {
		t.Fatalf("expected startedAt %v, got %v", now, rec.StartedAt)
	}

	if err := store.UpdateSessionStatus(ctx, "missing", domain.SessionAborted, now); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionStatusIsTerminalOnceFinal(t *testing.T) {
	ctx := context.Background()
	store := NewSessionRecordStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for _, id := range []string{"done", "aborted"} {
		_ = store.CreateSession(ctx, domain.SessionRecord{ID: id, Status: domain.SessionWaiting})
	}
	_ = store.CompleteSession(ctx, domain.ResultsSnapshot{SessionID: "done", CompletedAt: now})
	_ = store.UpdateSessionStatus(ctx, "aborted", domain.SessionAborted, now)

	// A late in-progress write must not reopen either record.
	for _, id := range []string{"done", "aborted"} {
		if err := store.UpdateSessionStatus(ctx, id, domain.SessionInProgress, now.Add(time.Second)); err != nil {
			t.Fatalf("late update on %s: %v", id, err)
		}
	}
	if rec, _ := store.GetSession(ctx, "done"); rec.Status != domain.SessionCompleted || rec.StartedAt != nil {
		t.Fatalf("completed record reopened: %+v", rec)
	}
	if rec, _ := store.GetSession(ctx, "aborted"); rec.Status != domain.SessionAborted {
		t.Fatalf("aborted record reopened: %+v", rec)
	}
}

func TestHistoryStoreFiltersByUser(t *testing.T) {
	ctx := context.Background()
	store := NewHistoryStore()
	_ = store.AppendHistory(ctx, []domain.HistoryRecord{
		{SessionID: "s1", UserID: "u1", QuestionIndex: 0},
		{SessionID: "s1", UserID: "u2", QuestionIndex: 0},
		{SessionID: "s2", UserID: "u1", QuestionIndex: 0},
	})

	all, _ := store.ListHistory(ctx, "s1", "")
	if len(all) != 2 {
		t.Fatalf("expected 2 records for s1, got %d", len(all))
	}
	mine, _ := store.ListHistory(ctx, "s1", "u2")
	if len(mine) != 1 || mine[0].UserID != "u2" {
		t.Fatalf("expected one u2 record, got %+v", mine)
	}
}

func TestResultsCacheExpires(t *testing.T) {
	ctx := context.Background()
	cache := NewResultsCache()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.clock = func() time.Time { return now }

	_ = cache.SetResults(ctx, domain.ResultsSnapshot{SessionID: "s1"}, time.Minute)
	if _, err := cache.GetResults(ctx, "s1"); err != nil {
		t.Fatalf("expected hit, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := cache.GetResults(ctx, "s1"); !errors.Is(err, domain.ErrResultsNotCached) {
		t.Fatalf("expected miss after ttl, got %v", err)
	}
}

func TestTeamDirectory(t *testing.T) {
	dir := NewTeamDirectory()
	dir.AddMember("team-1", "u1")

	if ok, _ := dir.IsMember(context.Background(), "team-1", "u1"); !ok {
		t.Fatalf("expected u1 to be a member")
	}
	if ok, _ := dir.IsMember(context.Background(), "team-1", "u2"); ok {
		t.Fatalf("expected u2 not to be a member")
	}
}
