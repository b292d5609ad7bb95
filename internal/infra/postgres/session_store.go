package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"live-quiz-service/internal/domain"
)

// SessionStore persists session records and answer history through bun.
type SessionStore struct {
	db *bun.DB
}

func NewSessionStore(db *bun.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) CreateSession(ctx context.Context, rec domain.SessionRecord) error {
	if _, err := s.db.NewInsert().Model(newGameSessionModel(rec)).Exec(ctx); err != nil {
		return fmt.Errorf("insert session %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SessionStore) UpdateSessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus, at time.Time) error {
	// Completed and aborted are terminal; a late write must not reopen them.
	q := s.db.NewUpdate().
		Model((*gameSessionModel)(nil)).
		Set("status = ?", string(status)).
		Where("id = ?", sessionID).
		Where("status NOT IN (?)", bun.In([]string{string(domain.SessionCompleted), string(domain.SessionAborted)}))
	switch status {
	case domain.SessionInProgress:
		q = q.Set("started_at = ?", at)
	case domain.SessionAborted, domain.SessionCompleted:
		q = q.Set("ended_at = ?", at)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("update session %s: %w", sessionID, err)
	}
	if err := requireRow(res); !errors.Is(err, domain.ErrSessionNotFound) {
		return err
	}
	// No row changed: either the session is unknown or already final.
	exists, err := s.db.NewSelect().Model((*gameSessionModel)(nil)).Where("gs.id = ?", sessionID).Exists(ctx)
	if err != nil {
		return fmt.Errorf("check session %s: %w", sessionID, err)
	}
	if !exists {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) CompleteSession(ctx context.Context, snap domain.ResultsSnapshot) error {
	model := &gameSessionModel{
		ID:        snap.SessionID,
		Status:    string(domain.SessionCompleted),
		Results:   snap.Rankings,
		Questions: snap.TotalQuestions,
		EndedAt:   &snap.CompletedAt,
	}
	res, err := s.db.NewUpdate().
		Model(model).
		Column("status", "results", "questions", "ended_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("complete session %s: %w", snap.SessionID, err)
	}
	return requireRow(res)
}

func (s *SessionStore) GetSession(ctx context.Context, sessionID string) (domain.SessionRecord, error) {
	var model gameSessionModel
	err := s.db.NewSelect().Model(&model).Where("gs.id = ?", sessionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SessionRecord{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.SessionRecord{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return model.record(), nil
}

// AppendHistory inserts one row per participant and question. Rows are
// never updated.
func (s *SessionStore) AppendHistory(ctx context.Context, records []domain.HistoryRecord) error {
	if len(records) == 0 {
		return nil
	}
	models := make([]answerHistoryModel, 0, len(records))
	for _, r := range records {
		models = append(models, answerHistoryModel{
			SessionID:     r.SessionID,
			UserID:        r.UserID,
			DisplayName:   r.DisplayName,
			QuestionIndex: r.QuestionIndex,
			QuestionID:    r.QuestionID,
			Attempts:      r.Attempts,
			Correct:       r.Correct,
			PointsGained:  r.PointsGained,
			CreatedAt:     r.CreatedAt,
		})
	}
	if _, err := s.db.NewInsert().Model(&models).Exec(ctx); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (s *SessionStore) ListHistory(ctx context.Context, sessionID, userID string) ([]domain.HistoryRecord, error) {
	var models []answerHistoryModel
	q := s.db.NewSelect().Model(&models).Where("ah.session_id = ?", sessionID)
	if userID != "" {
		q = q.Where("ah.user_id = ?", userID)
	}
	if err := q.Order("ah.question_index ASC", "ah.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	out := make([]domain.HistoryRecord, 0, len(models))
	for i := range models {
		out = append(out, models[i].record())
	}
	return out, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}
