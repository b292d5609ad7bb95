package app

import (
	"context"
	"fmt"
	"time"

	"live-quiz-service/internal/domain"
)

const maxCodeAttempts = 20

// CreateRoomRequest opens a room for a quiz.
type CreateRoomRequest struct {
	QuizID   string
	HostID   string
	HostName string
	Settings domain.Settings
	TeamID   string
}

// JoinRequest asks to enter a room by its public code. An empty UserID joins
// as a guest.
type JoinRequest struct {
	RoomID   string
	Username string
	UserID   string
}

// CreateRoom opens a room hosted by the connection connID and returns its
// public join code.
func (s *GameService) CreateRoom(ctx context.Context, connID string, req CreateRoomRequest) (string, error) {
	code, err := s.allocateCode(ctx)
	if err != nil {
		return "", err
	}
	hostID := req.HostID
	if hostID == "" {
		hostID = s.ids.GuestID()
	}
	now := s.now()

	rec := domain.SessionRecord{
		ID:        s.ids.SessionID(),
		Code:      code,
		QuizID:    req.QuizID,
		TeamID:    req.TeamID,
		HostID:    hostID,
		Status:    domain.SessionWaiting,
		CreatedAt: now,
	}
	pctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()
	if err := s.records.CreateSession(pctx, rec); err != nil {
		return "", fmt.Errorf("create session record: %w", err)
	}

	room := s.registry.Create(ctx, domain.RoomState{
		Code:      code,
		SessionID: rec.ID,
		QuizID:    req.QuizID,
		TeamID:    req.TeamID,
		HostID:    hostID,
		Participants: []domain.Participant{{
			ConnID:      connID,
			UserID:      hostID,
			DisplayName: req.HostName,
			Online:      true,
			Role:        domain.RoleHost,
		}},
		QuestionIndex: -1,
		Phase:         domain.PhaseLobby,
		Settings:      req.Settings,
		CreatedAt:     now,
	})
	s.metrics.RoomOpened()

	room.mu.Lock()
	defer room.mu.Unlock()
	s.roomLog(room).WithField("quiz", req.QuizID).Info("room created")
	s.pushStateLocked(room, "")
	return code, nil
}

func (s *GameService) allocateCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := s.ids.JoinCode()
		if !s.registry.Exists(ctx, code) {
			return code, nil
		}
	}
	return "", domain.ErrCodeExhausted
}

// JoinRoom adds a participant to a room, or re-attaches a known participant.
// It returns the participant's stable id, which is generated for guests.
func (s *GameService) JoinRoom(ctx context.Context, connID string, req JoinRequest) (string, error) {
	room, err := s.lockRoom(ctx, req.RoomID)
	if err != nil {
		return "", err
	}
	defer room.mu.Unlock()
	st := &room.state

	if req.UserID != "" {
		if p := st.Participant(req.UserID); p != nil {
			if req.Username != "" {
				p.DisplayName = req.Username
			}
			s.rejoinLocked(ctx, room, p, connID)
			return p.UserID, nil
		}
	}

	if st.Phase == domain.PhaseEnd {
		return "", domain.ErrGameEnded
	}
	if s.playerCountLocked(room) >= s.maxPlayers {
		return "", domain.ErrRoomFull
	}
	if st.TeamID != "" {
		if req.UserID == "" {
			return "", domain.ErrNotTeamMember
		}
		pctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
		member, err := s.teams.IsMember(pctx, st.TeamID, req.UserID)
		cancel()
		if err != nil {
			return "", fmt.Errorf("check team membership: %w", err)
		}
		if !member {
			return "", domain.ErrNotTeamMember
		}
	}

	userID := req.UserID
	if userID == "" {
		userID = s.ids.GuestID()
	}
	st.Participants = append(st.Participants, domain.Participant{
		ConnID:      connID,
		UserID:      userID,
		DisplayName: req.Username,
		Online:      true,
		Role:        domain.RolePlayer,
	})
	s.metrics.PlayerJoined()
	s.roomLog(room).WithField("user", userID).Info("player joined")
	s.commitLocked(ctx, room)
	return userID, nil
}

// Rejoin re-attaches a known participant to a new connection. It is also
// attempted implicitly when a connection opens with a room and user id.
func (s *GameService) Rejoin(ctx context.Context, connID, code, userID string) error {
	room, err := s.lockRoom(ctx, code)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()

	p := room.state.Participant(userID)
	if p == nil {
		return domain.ErrParticipantNotFound
	}
	s.rejoinLocked(ctx, room, p, connID)
	return nil
}

func (s *GameService) rejoinLocked(ctx context.Context, room *Room, p *domain.Participant, connID string) {
	st := &room.state
	p.ConnID = connID
	p.Online = true
	s.roomLog(room).WithField("user", p.UserID).Info("participant rejoined")

	if st.Phase == domain.PhaseQuestion && p.HasAnswered {
		if attempts := st.Answers[p.UserID]; len(attempts) > 0 {
			s.notifier.Send(connID, domain.Event{
				Type: domain.EventPreviousAnswer,
				Payload: domain.PreviousAnswerPayload{
					RoomID:        st.Code,
					QuestionIndex: st.QuestionIndex,
					OptionIndex:   attempts[len(attempts)-1].OptionIndex,
				},
			})
		}
	}
	s.commitLocked(ctx, room)
}

// Disconnect handles a closed connection in every room it was attached to.
// A host leaving ends the room for everyone; a player is only marked offline.
func (s *GameService) Disconnect(ctx context.Context, connID string) {
	for _, room := range s.registry.RoomsByConnection(connID) {
		s.disconnectFrom(ctx, room, connID)
	}
}

func (s *GameService) disconnectFrom(ctx context.Context, room *Room, connID string) {
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return
	}
	st := &room.state
	p := st.ByConn(connID)
	if p == nil {
		return
	}

	p.Online = false
	p.ConnID = ""
	if p.Role == domain.RoleHost {
		s.closeRoomLocked(ctx, room, "host disconnected", true)
		return
	}

	s.roomLog(room).WithField("user", p.UserID).Info("player disconnected")
	s.maybeEndRoundLocked(ctx, room)
}

// UpdateSettings changes room settings. Host only.
func (s *GameService) UpdateSettings(ctx context.Context, connID, code string, settings domain.Settings) error {
	room, err := s.lockRoom(ctx, code)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()
	if err := s.requireHostLocked(room, connID); err != nil {
		return err
	}

	st := &room.state
	st.Settings = settings
	switch st.Phase {
	case domain.PhaseQuestion:
		s.maybeEndRoundLocked(ctx, room)
		return nil
	case domain.PhaseResults:
		switch {
		case settings.AutoAdvance && room.advanceTimer == nil:
			s.armAdvanceTimerLocked(room, s.resultsDelay)
		case !settings.AutoAdvance:
			room.cancelAdvanceTimerLocked()
			st.AdvanceAt = time.Time{}
		}
	}
	s.commitLocked(ctx, room)
	return nil
}

// EndGame closes the room for everyone. Host only.
func (s *GameService) EndGame(ctx context.Context, connID, code string) error {
	room, err := s.lockRoom(ctx, code)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()
	if err := s.requireHostLocked(room, connID); err != nil {
		return err
	}
	s.closeRoomLocked(ctx, room, "room closed by host", false)
	return nil
}

// RemoveRoom drops a room and cancels its timers. Safe to call repeatedly.
func (s *GameService) RemoveRoom(ctx context.Context, code string) {
	if s.registry.Remove(ctx, code) {
		s.metrics.RoomClosed()
	}
}

// closeRoomLocked tells every online participant the room is gone, marks an
// unfinished durable record as aborted and evicts the room.
func (s *GameService) closeRoomLocked(ctx context.Context, room *Room, reason string, notifyTeam bool) {
	st := &room.state
	for _, p := range st.Participants {
		if !p.Online || p.ConnID == "" {
			continue
		}
		s.notifier.Send(p.ConnID, domain.Event{
			Type:    domain.EventRoomClosed,
			Payload: domain.ErrorPayload{Message: reason},
		})
	}
	if notifyTeam && st.TeamID != "" {
		s.notifier.SendTeam(st.TeamID, domain.Event{
			Type:    domain.EventTeamLobbyClose,
			Payload: domain.TeamNotice{TeamID: st.TeamID, RoomID: st.Code, QuizID: st.QuizID},
		})
	}
	if st.Phase != domain.PhaseEnd {
		sessionID, at := st.SessionID, s.now()
		s.background(room, "session", "", func(ctx context.Context) error {
			return s.records.UpdateSessionStatus(ctx, sessionID, domain.SessionAborted, at)
		})
	}

	s.roomLog(room).WithField("reason", reason).Info("room closed")
	room.shutdownLocked()
	s.registry.forget(ctx, room)
	s.metrics.RoomClosed()
}

func (s *GameService) requireHostLocked(room *Room, connID string) error {
	host := room.state.Host()
	if host == nil || connID == "" || host.ConnID != connID {
		return domain.ErrNotHost
	}
	return nil
}

func (s *GameService) playerCountLocked(room *Room) int {
	n := 0
	for _, p := range room.state.Participants {
		if p.Role != domain.RoleHost {
			n++
		}
	}
	return n
}

// maybeEndRoundLocked ends the current question early once every online
// player has answered and answers can no longer change; otherwise it commits.
func (s *GameService) maybeEndRoundLocked(ctx context.Context, room *Room) {
	st := &room.state
	if st.Phase == domain.PhaseQuestion && !st.Settings.AllowAnswerChange && s.allAnsweredLocked(room) {
		s.endRoundLocked(ctx, room)
		return
	}
	s.commitLocked(ctx, room)
}

// allAnsweredLocked reports whether at least one player is online and every
// online player has answered.
func (s *GameService) allAnsweredLocked(room *Room) bool {
	online := 0
	for _, p := range room.state.Participants {
		if p.Role == domain.RoleHost || !p.Online {
			continue
		}
		online++
		if !p.HasAnswered {
			return false
		}
	}
	return online > 0
}
