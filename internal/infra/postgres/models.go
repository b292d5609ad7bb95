package postgres

import (
	"time"

	"github.com/uptrace/bun"
	"live-quiz-service/internal/domain"
)

type gameSessionModel struct {
	bun.BaseModel `bun:"table:game_sessions,alias:gs"`

	ID        string               `bun:"id,pk"`
	Code      string               `bun:"code,notnull"`
	QuizID    string               `bun:"quiz_id,notnull"`
	TeamID    string               `bun:"team_id,nullzero"`
	HostID    string               `bun:"host_id,notnull"`
	Status    string               `bun:"status,notnull"`
	Results   []domain.FinalResult `bun:"results,type:jsonb"`
	Questions int                  `bun:"questions,notnull"`
	CreatedAt time.Time            `bun:"created_at,notnull"`
	StartedAt *time.Time           `bun:"started_at"`
	EndedAt   *time.Time           `bun:"ended_at"`
}

func newGameSessionModel(rec domain.SessionRecord) *gameSessionModel {
	return &gameSessionModel{
		ID:        rec.ID,
		Code:      rec.Code,
		QuizID:    rec.QuizID,
		TeamID:    rec.TeamID,
		HostID:    rec.HostID,
		Status:    string(rec.Status),
		Results:   rec.Results,
		Questions: rec.Questions,
		CreatedAt: rec.CreatedAt,
		StartedAt: rec.StartedAt,
		EndedAt:   rec.EndedAt,
	}
}

func (m *gameSessionModel) record() domain.SessionRecord {
	return domain.SessionRecord{
		ID:        m.ID,
		Code:      m.Code,
		QuizID:    m.QuizID,
		TeamID:    m.TeamID,
		HostID:    m.HostID,
		Status:    domain.SessionStatus(m.Status),
		Results:   m.Results,
		Questions: m.Questions,
		CreatedAt: m.CreatedAt,
		StartedAt: m.StartedAt,
		EndedAt:   m.EndedAt,
	}
}

type answerHistoryModel struct {
	bun.BaseModel `bun:"table:answer_history,alias:ah"`

	ID            int64            `bun:"id,pk,autoincrement"`
	SessionID     string           `bun:"session_id,notnull"`
	UserID        string           `bun:"user_id,notnull"`
	DisplayName   string           `bun:"display_name"`
	QuestionIndex int              `bun:"question_index,notnull"`
	QuestionID    string           `bun:"question_id,notnull"`
	Attempts      []domain.Attempt `bun:"attempts,type:jsonb"`
	Correct       bool             `bun:"correct,notnull"`
	PointsGained  int              `bun:"points_gained,notnull"`
	CreatedAt     time.Time        `bun:"created_at,notnull"`
}

func (m *answerHistoryModel) record() domain.HistoryRecord {
	return domain.HistoryRecord{
		SessionID:     m.SessionID,
		UserID:        m.UserID,
		DisplayName:   m.DisplayName,
		QuestionIndex: m.QuestionIndex,
		QuestionID:    m.QuestionID,
		Attempts:      m.Attempts,
		Correct:       m.Correct,
		PointsGained:  m.PointsGained,
		CreatedAt:     m.CreatedAt,
	}
}

type teamMemberModel struct {
	bun.BaseModel `bun:"table:team_members,alias:tm"`

	TeamID string `bun:"team_id,pk"`
	UserID string `bun:"user_id,pk"`
}
