package app

import (
	"context"
	"errors"

	"live-quiz-service/internal/domain"
)

// background runs a best-effort durable write off the game loop. A failure
// is logged, counted and, when hostConn is set, pushed to the host as a
// warning. Nothing is rolled back.
func (s *GameService) background(room *Room, kind, hostConn string, write func(ctx context.Context) error) {
	log := s.roomLog(room).WithField("kind", kind)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
		defer cancel()

		if err := write(ctx); err != nil {
			s.metrics.PersistenceFailed(kind)
			log.WithError(err).Warn("persistence write failed")
			if hostConn != "" {
				s.notifier.Send(hostConn, domain.Event{
					Type: domain.EventWarning,
					Payload: domain.ErrorPayload{
						Event:   kind,
						Message: "could not save " + kind + "; the game continues",
					},
				})
			}
		}
	}()
}

// GetResults returns the results of a finished session. The cached snapshot
// is served when present; otherwise it is rebuilt from the durable record
// and cached again.
func (s *GameService) GetResults(ctx context.Context, sessionID string) (domain.ResultsSnapshot, error) {
	snap, err := s.results.GetResults(ctx, sessionID)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, domain.ErrResultsNotCached) {
		s.log.WithError(err).WithField("session", sessionID).Warn("results cache read failed")
	}

	v, err, _ := s.resultsSF.Do(sessionID, func() (interface{}, error) {
		// Shared by every waiting caller, so one caller's cancellation must
		// not fail the rest.
		ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
		defer cancel()
		rec, err := s.records.GetSession(ctx, sessionID)
		if err != nil {
			return domain.ResultsSnapshot{}, err
		}
		if rec.Status != domain.SessionCompleted {
			return domain.ResultsSnapshot{}, domain.ErrResultsNotReady
		}
		snap := domain.ResultsSnapshot{
			SessionID:      rec.ID,
			QuizID:         rec.QuizID,
			TeamID:         rec.TeamID,
			TotalQuestions: rec.Questions,
			Rankings:       rec.Results,
		}
		if rec.EndedAt != nil {
			snap.CompletedAt = *rec.EndedAt
		}
		if err := s.results.SetResults(ctx, snap, s.resultsTTL); err != nil {
			s.metrics.PersistenceFailed("results")
			s.log.WithError(err).WithField("session", sessionID).Warn("results cache write failed")
		}
		return snap, nil
	})
	if err != nil {
		return domain.ResultsSnapshot{}, err
	}
	return v.(domain.ResultsSnapshot), nil
}

// ListHistory returns the history records of a session, optionally for one user.
func (s *GameService) ListHistory(ctx context.Context, sessionID, userID string) ([]domain.HistoryRecord, error) {
	return s.history.ListHistory(ctx, sessionID, userID)
}
