package app

import (
	"time"

	"live-quiz-service/internal/domain"
)

// Project builds the snapshot one recipient is allowed to see. Correctness
// and answer details only appear once the round is revealed, and only the
// recipient's own answer is attached.
func Project(st *domain.RoomState, recipientID string, now time.Time) domain.StatePayload {
	payload := domain.StatePayload{
		RoomID:               st.Code,
		SessionID:            st.SessionID,
		You:                  recipientID,
		Phase:                st.Phase,
		Participants:         make([]domain.ParticipantView, 0, len(st.Participants)),
		CurrentQuestionIndex: st.QuestionIndex,
		TotalQuestions:       len(st.Deck),
		AnswerCounts:         append([]int{}, st.AnswerCounts...),
		Settings:             st.Settings,
	}
	for _, p := range st.Participants {
		payload.Participants = append(payload.Participants, domain.ParticipantView{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Online:      p.Online,
			Score:       p.Score,
			Role:        p.Role,
			HasAnswered: p.HasAnswered,
		})
	}

	revealed := st.Phase == domain.PhaseResults || st.Phase == domain.PhaseEnd
	if q, ok := st.CurrentQuestion(); ok && st.Phase != domain.PhaseLobby {
		view := &domain.QuestionView{
			ID:        q.ID,
			Prompt:    q.Prompt,
			Options:   make([]domain.OptionView, 0, len(q.Options)),
			Points:    q.BasePoints(),
			TimeLimit: q.TimeLimit,
		}
		for _, opt := range q.Options {
			ov := domain.OptionView{Text: opt.Text}
			if revealed {
				correct := opt.Correct
				ov.Correct = &correct
			}
			view.Options = append(view.Options, ov)
		}
		if revealed {
			correctIdx := q.CorrectIndex()
			view.CorrectIndex = &correctIdx
			if attempts := st.Answers[recipientID]; len(attempts) > 0 {
				last := attempts[len(attempts)-1]
				view.YourAnswer = &domain.AnswerView{
					OptionIndex:  last.OptionIndex,
					Correct:      last.Correct,
					PointsGained: st.RoundGains[recipientID],
				}
			}
		}
		payload.Question = view
	}

	if st.Phase == domain.PhaseQuestion && !st.Deadline.IsZero() {
		deadline := st.Deadline
		payload.Deadline = &deadline
		if remaining := deadline.Sub(now); remaining > 0 {
			payload.TimeRemainingMs = remaining.Milliseconds()
		}
	}
	if st.Phase == domain.PhaseEnd {
		payload.Rankings = append([]domain.FinalResult(nil), st.Rankings...)
	}
	return payload
}

// pushStateLocked sends each online participant its own snapshot on its
// current connection.
func (s *GameService) pushStateLocked(room *Room, errMsg string) {
	now := s.now()
	for _, p := range room.state.Participants {
		if !p.Online || p.ConnID == "" {
			continue
		}
		payload := Project(&room.state, p.UserID, now)
		payload.Error = errMsg
		s.notifier.Send(p.ConnID, domain.Event{Type: domain.EventState, Payload: payload})
	}
}
