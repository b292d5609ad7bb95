package domain

import "time"

// Phase is the state of a room's round state machine.
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhaseQuestion Phase = "question"
	PhaseResults  Phase = "results"
	PhaseEnd      Phase = "end"
)

// Role distinguishes the host, who never answers, from players.
type Role string

const (
	RoleHost   Role = "host"
	RolePlayer Role = "player"
)

// SessionStatus is the lifecycle status of a durable session record.
type SessionStatus string

const (
	SessionWaiting    SessionStatus = "waiting"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionAborted    SessionStatus = "aborted"
)

// Final reports whether no further status change is allowed.
func (s SessionStatus) Final() bool {
	return s == SessionCompleted || s == SessionAborted
}

// DefaultPoints is used when a question does not carry its own base points.
const DefaultPoints = 1000

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID        string   `json:"id"`
	Prompt    string   `json:"prompt"`
	Options   []Option `json:"options"`
	Points    int      `json:"points"`    // defaults to DefaultPoints if zero
	TimeLimit int      `json:"timeLimit"` // seconds; <= 0 means untimed
}

// BasePoints returns the question's points or the default.
func (q Question) BasePoints() int {
	if q.Points > 0 {
		return q.Points
	}
	return DefaultPoints
}

// CorrectIndex returns the index of the first correct option, or -1.
func (q Question) CorrectIndex() int {
	for i, opt := range q.Options {
		if opt.Correct {
			return i
		}
	}
	return -1
}

// Quiz is a collection of questions.
type Quiz struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// Settings are the host-controlled room options.
type Settings struct {
	AutoAdvance       bool `json:"autoAdvance"`
	AllowAnswerChange bool `json:"allowAnswerChange"`
}

// Participant is a host or player attached to a room.
// ConnID changes on every reconnect; UserID is stable.
type Participant struct {
	ConnID      string `json:"connId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Online      bool   `json:"online"`
	Score       int    `json:"score"`
	Role        Role   `json:"role"`
	HasAnswered bool   `json:"hasAnswered"`
}

// Attempt is one answer submission for the current question.
type Attempt struct {
	OptionIndex   int       `json:"optionIndex"`
	RemainingTime float64   `json:"remainingTime"` // seconds
	Correct       bool      `json:"correct"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// RoomState is the serializable part of a live room. It is what the shared
// cache mirrors and what the projector reads.
type RoomState struct {
	Code          string               `json:"code"`
	SessionID     string               `json:"sessionId"`
	QuizID        string               `json:"quizId"`
	TeamID        string               `json:"teamId,omitempty"`
	HostID        string               `json:"hostId"`
	Participants  []Participant        `json:"participants"`
	QuestionIndex int                  `json:"questionIndex"`
	Answers       map[string][]Attempt `json:"answers"`
	AnswerCounts  []int                `json:"answerCounts"`
	RoundGains    map[string]int       `json:"roundGains"`
	Phase         Phase                `json:"phase"`
	Settings      Settings             `json:"settings"`
	Deck          []Question           `json:"deck"`
	QuestionStart time.Time            `json:"questionStart"`
	Deadline      time.Time            `json:"deadline"`
	AdvanceAt     time.Time            `json:"advanceAt"`
	FinalResults  bool                 `json:"finalResults"`
	Rankings      []FinalResult        `json:"rankings,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// Participant returns a pointer to the participant with userID.
func (s *RoomState) Participant(userID string) *Participant {
	for i := range s.Participants {
		if s.Participants[i].UserID == userID {
			return &s.Participants[i]
		}
	}
	return nil
}

// ByConn returns the participant currently attached to connID.
func (s *RoomState) ByConn(connID string) *Participant {
	if connID == "" {
		return nil
	}
	for i := range s.Participants {
		if s.Participants[i].ConnID == connID {
			return &s.Participants[i]
		}
	}
	return nil
}

// Host returns the host participant.
func (s *RoomState) Host() *Participant {
	return s.Participant(s.HostID)
}

// CurrentQuestion returns the question being played, if any.
func (s *RoomState) CurrentQuestion() (Question, bool) {
	if s.QuestionIndex < 0 || s.QuestionIndex >= len(s.Deck) {
		return Question{}, false
	}
	return s.Deck[s.QuestionIndex], true
}

// FinalResult is one ranked participant of a finished game.
type FinalResult struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
}

// SessionRecord is the durable counterpart of a room.
type SessionRecord struct {
	ID        string        `json:"id"`
	Code      string        `json:"code"`
	QuizID    string        `json:"quizId"`
	TeamID    string        `json:"teamId,omitempty"`
	HostID    string        `json:"hostId"`
	Status    SessionStatus `json:"status"`
	Results   []FinalResult `json:"results,omitempty"`
	Questions int           `json:"questions"`
	CreatedAt time.Time     `json:"createdAt"`
	StartedAt *time.Time    `json:"startedAt,omitempty"`
	EndedAt   *time.Time    `json:"endedAt,omitempty"`
}

// HistoryRecord is the immutable per-participant, per-question outcome.
type HistoryRecord struct {
	SessionID     string    `json:"sessionId"`
	UserID        string    `json:"userId"`
	DisplayName   string    `json:"displayName"`
	QuestionIndex int       `json:"questionIndex"`
	QuestionID    string    `json:"questionId"`
	Attempts      []Attempt `json:"attempts"`
	Correct       bool      `json:"correct"`
	PointsGained  int       `json:"pointsGained"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ResultsSnapshot is the cached, read-optimized aggregate of a finished session.
type ResultsSnapshot struct {
	SessionID      string        `json:"sessionId"`
	QuizID         string        `json:"quizId"`
	TeamID         string        `json:"teamId,omitempty"`
	TotalQuestions int           `json:"totalQuestions"`
	Rankings       []FinalResult `json:"rankings"`
	CompletedAt    time.Time     `json:"completedAt"`
}
