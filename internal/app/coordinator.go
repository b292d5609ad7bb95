package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"live-quiz-service/internal/domain"
)

// StartGame moves a room from lobby to its first question. Host only, and at
// least one player must be online. A missing or empty quiz aborts the start
// with an in-room error.
func (s *GameService) StartGame(ctx context.Context, connID, code string) error {
	room, err := s.lockRoom(ctx, code)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()
	if err := s.requireHostLocked(room, connID); err != nil {
		return err
	}
	st := &room.state
	if st.Phase != domain.PhaseLobby {
		return domain.ErrInvalidPhase
	}
	if !s.anyPlayerOnlineLocked(room) {
		return domain.ErrNoPlayers
	}

	quiz, err := s.quizzes.GetQuiz(ctx, st.QuizID)
	if err == nil && len(quiz.Questions) == 0 {
		err = domain.ErrEmptyDeck
	}
	if err != nil {
		s.roomLog(room).WithError(err).Error("could not load question deck")
		if !errors.Is(err, domain.ErrQuizNotFound) && !errors.Is(err, domain.ErrEmptyDeck) {
			err = fmt.Errorf("load quiz %s: %w", st.QuizID, err)
		}
		s.pushStateLocked(room, err.Error())
		return err
	}
	st.Deck = quiz.Questions

	sessionID, at := st.SessionID, s.now()
	s.background(room, "session", "", func(ctx context.Context) error {
		return s.records.UpdateSessionStatus(ctx, sessionID, domain.SessionInProgress, at)
	})
	if st.TeamID != "" {
		s.notifier.SendTeam(st.TeamID, domain.Event{
			Type:    domain.EventTeamGameStart,
			Payload: domain.TeamNotice{TeamID: st.TeamID, RoomID: st.Code, QuizID: st.QuizID},
		})
	}
	s.roomLog(room).WithField("questions", len(st.Deck)).Info("game started")
	s.beginQuestionLocked(ctx, room, 0)
	return nil
}

// SubmitAnswer records an attempt for the current question. Remaining time
// is measured against the room's own deadline.
func (s *GameService) SubmitAnswer(ctx context.Context, connID, code, userID string, optionIndex int) error {
	room, err := s.lockRoom(ctx, code)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()
	st := &room.state

	p := st.Participant(userID)
	if p == nil || p.ConnID != connID {
		return domain.ErrParticipantNotFound
	}
	if p.Role == domain.RoleHost {
		return domain.ErrHostCannotAnswer
	}
	if st.Phase != domain.PhaseQuestion {
		return domain.ErrInvalidPhase
	}
	q, ok := st.CurrentQuestion()
	if !ok {
		return domain.ErrInvalidPhase
	}
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return domain.ErrInvalidOption
	}
	if p.HasAnswered && !st.Settings.AllowAnswerChange {
		return domain.ErrAlreadyAnswered
	}

	now := s.now()
	remaining := 0.0
	if q.TimeLimit > 0 {
		if now.After(st.Deadline) {
			return domain.ErrRoundClosed
		}
		remaining = st.Deadline.Sub(now).Seconds()
	}
	st.Answers[userID] = append(st.Answers[userID], domain.Attempt{
		OptionIndex:   optionIndex,
		RemainingTime: remaining,
		SubmittedAt:   now,
	})
	p.HasAnswered = true
	s.metrics.AnswerSubmitted()
	s.maybeEndRoundLocked(ctx, room)
	return nil
}

// EndRound closes the current question early. Host only.
func (s *GameService) EndRound(ctx context.Context, connID, code string) error {
	room, err := s.lockRoom(ctx, code)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()
	if err := s.requireHostLocked(room, connID); err != nil {
		return err
	}
	if room.state.Phase != domain.PhaseQuestion {
		return domain.ErrInvalidPhase
	}
	s.endRoundLocked(ctx, room)
	return nil
}

// NextQuestion leaves the results phase. Host only.
func (s *GameService) NextQuestion(ctx context.Context, connID, code string) error {
	room, err := s.lockRoom(ctx, code)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()
	if err := s.requireHostLocked(room, connID); err != nil {
		return err
	}
	if room.state.Phase != domain.PhaseResults {
		return domain.ErrInvalidPhase
	}
	s.advanceLocked(ctx, room)
	return nil
}

// PlayAgain returns a finished room to the lobby with scores and answers
// cleared. Participants are kept and a fresh durable record is opened.
func (s *GameService) PlayAgain(ctx context.Context, connID, code string) error {
	room, err := s.lockRoom(ctx, code)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()
	if err := s.requireHostLocked(room, connID); err != nil {
		return err
	}
	st := &room.state
	if st.Phase != domain.PhaseEnd {
		return domain.ErrInvalidPhase
	}

	rec := domain.SessionRecord{
		ID:        s.ids.SessionID(),
		Code:      st.Code,
		QuizID:    st.QuizID,
		TeamID:    st.TeamID,
		HostID:    st.HostID,
		Status:    domain.SessionWaiting,
		CreatedAt: s.now(),
	}
	pctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()
	if err := s.records.CreateSession(pctx, rec); err != nil {
		return fmt.Errorf("create session record: %w", err)
	}

	room.cancelTimersLocked()
	st.SessionID = rec.ID
	st.Phase = domain.PhaseLobby
	st.QuestionIndex = -1
	st.Deck = nil
	st.Answers = make(map[string][]domain.Attempt)
	st.AnswerCounts = nil
	st.RoundGains = make(map[string]int)
	st.Deadline = time.Time{}
	st.AdvanceAt = time.Time{}
	st.FinalResults = false
	st.Rankings = nil
	for i := range st.Participants {
		st.Participants[i].Score = 0
		st.Participants[i].HasAnswered = false
	}
	s.roomLog(room).Info("room reset for another game")
	s.commitLocked(ctx, room)
	return nil
}

// beginQuestionLocked arms the question at idx. Any previously armed timer
// is cancelled first.
func (s *GameService) beginQuestionLocked(ctx context.Context, room *Room, idx int) {
	room.cancelTimersLocked()
	st := &room.state
	q := st.Deck[idx]

	st.Phase = domain.PhaseQuestion
	st.QuestionIndex = idx
	st.Answers = make(map[string][]domain.Attempt)
	st.AnswerCounts = make([]int, len(q.Options))
	st.RoundGains = make(map[string]int)
	st.AdvanceAt = time.Time{}
	for i := range st.Participants {
		st.Participants[i].HasAnswered = false
	}

	now := s.now()
	st.QuestionStart = now
	st.Deadline = time.Time{}
	if q.TimeLimit > 0 {
		limit := time.Duration(q.TimeLimit) * time.Second
		st.Deadline = now.Add(limit)
		s.armQuestionTimerLocked(room, limit)
	}
	s.commitLocked(ctx, room)
}

// endRoundLocked scores the round, hands history to storage and moves to
// results, arming the results timer under auto-advance.
func (s *GameService) endRoundLocked(ctx context.Context, room *Room) {
	room.cancelQuestionTimerLocked()
	st := &room.state
	q, ok := st.CurrentQuestion()
	if !ok {
		return
	}

	outcome := scoreRound(q, st.Answers)
	st.AnswerCounts = outcome.counts
	st.RoundGains = outcome.gains

	now := s.now()
	records := make([]domain.HistoryRecord, 0, len(outcome.gains))
	for i := range st.Participants {
		p := &st.Participants[i]
		attempts := st.Answers[p.UserID]
		if len(attempts) == 0 {
			continue
		}
		gained := outcome.gains[p.UserID]
		p.Score += gained
		records = append(records, domain.HistoryRecord{
			SessionID:     st.SessionID,
			UserID:        p.UserID,
			DisplayName:   p.DisplayName,
			QuestionIndex: st.QuestionIndex,
			QuestionID:    q.ID,
			Attempts:      append([]domain.Attempt(nil), attempts...),
			Correct:       attempts[len(attempts)-1].Correct,
			PointsGained:  gained,
			CreatedAt:     now,
		})
	}

	st.Phase = domain.PhaseResults
	st.Deadline = time.Time{}
	if st.Settings.AutoAdvance {
		s.armAdvanceTimerLocked(room, s.resultsDelay)
	}
	s.metrics.RoundCompleted()

	if len(records) > 0 {
		s.background(room, "history", s.hostConnLocked(room), func(ctx context.Context) error {
			return s.history.AppendHistory(ctx, records)
		})
	}
	s.commitLocked(ctx, room)
}

// advanceLocked moves from results to the next question, or to the end
// once the deck is exhausted.
func (s *GameService) advanceLocked(ctx context.Context, room *Room) {
	room.cancelAdvanceTimerLocked()
	next := room.state.QuestionIndex + 1
	if next >= len(room.state.Deck) {
		s.finishGameLocked(ctx, room)
		return
	}
	s.beginQuestionLocked(ctx, room, next)
}

// finishGameLocked ranks players, marks the room ended and hands the final
// results to the durable record and the results cache.
func (s *GameService) finishGameLocked(ctx context.Context, room *Room) {
	room.cancelTimersLocked()
	st := &room.state
	st.Phase = domain.PhaseEnd
	st.QuestionIndex = len(st.Deck)
	st.FinalResults = true
	st.Deadline = time.Time{}
	st.AdvanceAt = time.Time{}
	st.Rankings = RankParticipants(st.Participants)

	snap := domain.ResultsSnapshot{
		SessionID:      st.SessionID,
		QuizID:         st.QuizID,
		TeamID:         st.TeamID,
		TotalQuestions: len(st.Deck),
		Rankings:       append([]domain.FinalResult(nil), st.Rankings...),
		CompletedAt:    s.now(),
	}
	hostConn := s.hostConnLocked(room)
	s.background(room, "session", hostConn, func(ctx context.Context) error {
		return s.records.CompleteSession(ctx, snap)
	})
	s.background(room, "results", hostConn, func(ctx context.Context) error {
		return s.results.SetResults(ctx, snap, s.resultsTTL)
	})
	s.metrics.GameFinished()
	s.roomLog(room).WithField("players", len(st.Rankings)).Info("game finished")
	s.commitLocked(ctx, room)
}

func (s *GameService) armQuestionTimerLocked(room *Room, d time.Duration) {
	room.cancelQuestionTimerLocked()
	t := &timerTask{}
	t.stop = s.sched.AfterFunc(d, func() { s.onQuestionTimeout(room, t) })
	room.questionTimer = t
}

func (s *GameService) armAdvanceTimerLocked(room *Room, d time.Duration) {
	room.cancelAdvanceTimerLocked()
	room.state.AdvanceAt = s.now().Add(d)
	t := &timerTask{}
	t.stop = s.sched.AfterFunc(d, func() { s.onAdvanceTimeout(room, t) })
	room.advanceTimer = t
}

func (s *GameService) onQuestionTimeout(room *Room, t *timerTask) {
	room.mu.Lock()
	defer room.mu.Unlock()
	defer s.recoverPanic(room, "question timer")
	if room.closed || room.questionTimer != t || room.state.Phase != domain.PhaseQuestion {
		return
	}
	room.questionTimer = nil
	s.endRoundLocked(context.Background(), room)
}

func (s *GameService) onAdvanceTimeout(room *Room, t *timerTask) {
	room.mu.Lock()
	defer room.mu.Unlock()
	defer s.recoverPanic(room, "results timer")
	if room.closed || room.advanceTimer != t || room.state.Phase != domain.PhaseResults {
		return
	}
	room.advanceTimer = nil
	s.advanceLocked(context.Background(), room)
}

// recoverTimersLocked re-arms the timers of a room rehydrated from the
// shared cache, using the deadlines stored with it.
func (s *GameService) recoverTimersLocked(room *Room) {
	room.needsRecovery = false
	st := &room.state
	now := s.now()
	switch {
	case st.Phase == domain.PhaseQuestion && !st.Deadline.IsZero():
		s.armQuestionTimerLocked(room, nonNegative(st.Deadline.Sub(now)))
	case st.Phase == domain.PhaseResults && st.Settings.AutoAdvance && !st.AdvanceAt.IsZero():
		advanceAt := st.AdvanceAt
		s.armAdvanceTimerLocked(room, nonNegative(advanceAt.Sub(now)))
		st.AdvanceAt = advanceAt
	}
	s.roomLog(room).WithField("phase", st.Phase).Info("room timers recovered")
}

func (s *GameService) recoverPanic(room *Room, where string) {
	if r := recover(); r != nil {
		s.roomLog(room).WithField("where", where).Errorf("recovered panic: %v", r)
	}
}

func (s *GameService) anyPlayerOnlineLocked(room *Room) bool {
	for _, p := range room.state.Participants {
		if p.Role != domain.RoleHost && p.Online {
			return true
		}
	}
	return false
}

func (s *GameService) hostConnLocked(room *Room) string {
	if host := room.state.Host(); host != nil && host.Online {
		return host.ConnID
	}
	return ""
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
