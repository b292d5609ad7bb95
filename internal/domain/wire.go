package domain

import "time"

// Outbound event types.
const (
	EventConnected      = "connected"
	EventState          = "state"
	EventPreviousAnswer = "previousAnswer"
	EventError          = "error"
	EventWarning        = "warning"
	EventRoomClosed     = "roomClosed"
	EventTeamGameStart  = "teamGameStarted"
	EventTeamLobbyClose = "teamLobbyClosed"
)

// Event is one message pushed to a connection.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// StatePayload is the full per-recipient room snapshot. Every push is
// complete so a client that missed earlier pushes resynchronizes.
type StatePayload struct {
	RoomID               string            `json:"roomId"`
	SessionID            string            `json:"sessionId"`
	You                  string            `json:"you"`
	Phase                Phase             `json:"phase"`
	Participants         []ParticipantView `json:"participants"`
	CurrentQuestionIndex int               `json:"currentQuestionIndex"`
	TotalQuestions       int               `json:"totalQuestions"`
	Question             *QuestionView     `json:"question,omitempty"`
	AnswerCounts         []int             `json:"answerCounts"`
	Settings             Settings          `json:"settings"`
	Deadline             *time.Time        `json:"deadline,omitempty"`
	TimeRemainingMs      int64             `json:"timeRemainingMs,omitempty"`
	Rankings             []FinalResult     `json:"rankings,omitempty"`
	Error                string            `json:"error,omitempty"`
}

// ParticipantView is a participant without its connection handle.
type ParticipantView struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Online      bool   `json:"online"`
	Score       int    `json:"score"`
	Role        Role   `json:"role"`
	HasAnswered bool   `json:"hasAnswered"`
}

// QuestionView is a question with correctness hidden until revealed.
type QuestionView struct {
	ID           string       `json:"id"`
	Prompt       string       `json:"prompt"`
	Options      []OptionView `json:"options"`
	Points       int          `json:"points"`
	TimeLimit    int          `json:"timeLimit"`
	CorrectIndex *int         `json:"correctIndex,omitempty"`
	YourAnswer   *AnswerView  `json:"yourAnswer,omitempty"`
}

// OptionView is an option; Correct is only set once revealed.
type OptionView struct {
	Text    string `json:"text"`
	Correct *bool  `json:"correct,omitempty"`
}

// AnswerView is the recipient's own scored answer.
type AnswerView struct {
	OptionIndex  int  `json:"optionIndex"`
	Correct      bool `json:"correct"`
	PointsGained int  `json:"pointsGained"`
}

// PreviousAnswerPayload tells a rejoining connection what it already chose.
type PreviousAnswerPayload struct {
	RoomID        string `json:"roomId"`
	QuestionIndex int    `json:"questionIndex"`
	OptionIndex   int    `json:"optionIndex"`
}

// ErrorPayload reports a rejected action or a non-fatal warning.
type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}

// TeamNotice is pushed to every connected member of a team.
type TeamNotice struct {
	TeamID string `json:"teamId"`
	RoomID string `json:"roomId"`
	QuizID string `json:"quizId,omitempty"`
}

// ConnectedPayload tells a new connection its id.
type ConnectedPayload struct {
	ConnID string `json:"connId"`
}
