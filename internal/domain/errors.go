package domain

import "errors"

var (
	// ErrRoomNotFound is returned when no live room has the given code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull is returned when a room already holds the maximum number of players.
	ErrRoomFull = errors.New("room is full")
	// ErrGameEnded is returned when joining a room whose game is over.
	ErrGameEnded = errors.New("game has ended")
	// ErrNotTeamMember is returned when a non-member joins a team-scoped room.
	ErrNotTeamMember = errors.New("not a member of this team")
	// ErrParticipantNotFound is returned when a user tries to act before joining.
	ErrParticipantNotFound = errors.New("participant not found in room")
	// ErrNotHost is returned for host-only actions sent by anyone else.
	ErrNotHost = errors.New("only the host can do that")
	// ErrHostCannotAnswer is returned when the host submits an answer.
	ErrHostCannotAnswer = errors.New("host cannot answer")
	// ErrInvalidPhase is returned when an action does not fit the room's phase.
	ErrInvalidPhase = errors.New("action not allowed in current phase")
	// ErrNoPlayers is returned when starting without any online player.
	ErrNoPlayers = errors.New("at least one online player is required")
	// ErrAlreadyAnswered is returned on resubmission when answer changes are disabled.
	ErrAlreadyAnswered = errors.New("answer already submitted")
	// ErrRoundClosed is returned for answers arriving after the question deadline.
	ErrRoundClosed = errors.New("round is closed")
	// ErrInvalidOption indicates a submitted option index is out of range.
	ErrInvalidOption = errors.New("option not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrEmptyDeck indicates the quiz has no questions to play.
	ErrEmptyDeck = errors.New("quiz has no questions")
	// ErrCodeExhausted is returned when no free join code could be generated.
	ErrCodeExhausted = errors.New("could not allocate a room code")
	// ErrSessionNotFound is returned when no durable session record exists.
	ErrSessionNotFound = errors.New("session not found")
	// ErrResultsNotReady is returned when results are requested for an unfinished session.
	ErrResultsNotReady = errors.New("session has not completed")
	// ErrResultsNotCached is returned by results caches on a miss.
	ErrResultsNotCached = errors.New("results not cached")
)
