package app_test

import (
	"testing"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

func projectorState(phase domain.Phase) *domain.RoomState {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &domain.RoomState{
		Code:   "123456",
		HostID: "host",
		Participants: []domain.Participant{
			{UserID: "host", Role: domain.RoleHost, Online: true},
			{UserID: "a", Role: domain.RolePlayer, Online: true, HasAnswered: true, Score: 1500},
			{UserID: "b", Role: domain.RolePlayer, Online: true, HasAnswered: true},
		},
		QuestionIndex: 0,
		Phase:         phase,
		Deck:          sampleQuizzes()["quiz-1"].Questions,
		Answers: map[string][]domain.Attempt{
			"a": {{OptionIndex: 1, RemainingTime: 15, Correct: true}},
			"b": {{OptionIndex: 0, RemainingTime: 10}},
		},
		AnswerCounts: []int{1, 1, 0},
		RoundGains:   map[string]int{"a": 1500, "b": 0},
		Deadline:     start.Add(30 * time.Second),
	}
}

func TestProjectHidesCorrectnessDuringQuestion(t *testing.T) {
	st := projectorState(domain.PhaseQuestion)
	now := st.Deadline.Add(-12 * time.Second)

	got := app.Project(st, "a", now)
	if got.Question == nil {
		t.Fatalf("expected question in payload")
	}
	for i, opt := range got.Question.Options {
		if opt.Correct != nil {
			t.Fatalf("option %d leaks correctness during question phase", i)
		}
	}
	if got.Question.CorrectIndex != nil || got.Question.YourAnswer != nil {
		t.Fatalf("expected no reveal during question phase, got %+v", got.Question)
	}
	if got.Deadline == nil || got.TimeRemainingMs != 12000 {
		t.Fatalf("expected deadline with 12000ms remaining, got %v / %d", got.Deadline, got.TimeRemainingMs)
	}
}

func TestProjectRevealsOnlyRecipientsAnswer(t *testing.T) {
	st := projectorState(domain.PhaseResults)

	forA := app.Project(st, "a", time.Now())
	if forA.Question == nil || forA.Question.CorrectIndex == nil || *forA.Question.CorrectIndex != 1 {
		t.Fatalf("expected correct index 1, got %+v", forA.Question)
	}
	if ya := forA.Question.YourAnswer; ya == nil || !ya.Correct || ya.PointsGained != 1500 || ya.OptionIndex != 1 {
		t.Fatalf("unexpected answer view for a: %+v", ya)
	}
	if forA.Deadline != nil {
		t.Fatalf("results phase should not carry a deadline")
	}

	forB := app.Project(st, "b", time.Now())
	if yb := forB.Question.YourAnswer; yb == nil || yb.Correct || yb.OptionIndex != 0 {
		t.Fatalf("unexpected answer view for b: %+v", yb)
	}

	forHost := app.Project(st, "host", time.Now())
	if forHost.Question.YourAnswer != nil {
		t.Fatalf("host has no answer to reveal")
	}
}

func TestProjectLobbyHasNoQuestion(t *testing.T) {
	st := projectorState(domain.PhaseLobby)
	st.QuestionIndex = -1

	got := app.Project(st, "a", time.Now())
	if got.Question != nil {
		t.Fatalf("lobby should not expose a question")
	}
	if got.CurrentQuestionIndex != -1 || got.TotalQuestions != 2 || len(got.Participants) != 3 {
		t.Fatalf("unexpected lobby payload: %+v", got)
	}
}
