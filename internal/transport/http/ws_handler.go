package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// Inbound event types.
const (
	msgCreateRoom     = "create-room"
	msgJoinRoom       = "join-room"
	msgUpdateSettings = "update-settings"
	msgStartGame      = "start-game"
	msgSubmitAnswer   = "submit-answer"
	msgNextQuestion   = "request-next-question"
	msgEndRound       = "end-round"
	msgPlayAgain      = "play-again"
	msgEndGame        = "end-game"
)

var errUnsupported = errors.New("unsupported message type")

type WSHandler struct {
	service  *app.GameService
	hub      *Hub
	validate *validator.Validate
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, hub *Hub, log logrus.FieldLogger) *WSHandler {
	return &WSHandler{
		service:  service,
		hub:      hub,
		validate: validator.New(),
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type createRoomPayload struct {
	QuizID   string          `json:"quizId" validate:"required"`
	HostID   string          `json:"hostId"`
	HostName string          `json:"hostName" validate:"required,max=64"`
	Settings domain.Settings `json:"settings"`
	TeamID   string          `json:"teamId"`
}

type joinRoomPayload struct {
	RoomID   string `json:"roomId" validate:"required"`
	Username string `json:"username" validate:"required,max=64"`
	UserID   string `json:"userId"`
}

type roomPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

type settingsPayload struct {
	RoomID   string          `json:"roomId" validate:"required"`
	Settings domain.Settings `json:"settings"`
}

type answerPayload struct {
	RoomID      string `json:"roomId" validate:"required"`
	UserID      string `json:"userId" validate:"required"`
	OptionIndex *int   `json:"optionIndex" validate:"required,min=0"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the game
// service. A connection opened with roomId and userId query parameters is
// re-attached to that participant; teamId subscribes it to team notices.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	c := newClient(uuid.NewString(), query.Get("teamId"))
	log := h.log.WithField("conn", c.id)
	h.hub.register(c)
	defer h.hub.unregister(c)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case ev := <-c.send:
				if err := conn.WriteJSON(ev); err != nil {
					log.WithError(err).Debug("ws write error")
					return
				}
			case <-c.done:
				return
			}
		}
	}()

	ctx := r.Context()
	c.enqueue(domain.Event{Type: domain.EventConnected, Payload: domain.ConnectedPayload{ConnID: c.id}})
	if roomID, userID := query.Get("roomId"), query.Get("userId"); roomID != "" && userID != "" {
		if err := h.service.Rejoin(ctx, c.id, roomID, userID); err != nil {
			log.WithError(err).Debug("implicit rejoin failed")
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(ctx, c, inbound)
	}

	h.service.Disconnect(context.Background(), c.id)
	close(c.done)
	<-writerDone
}

// dispatch runs one event in isolation: a failure or panic is reported to
// the sender only.
func (h *WSHandler) dispatch(ctx context.Context, c *client, msg inboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			h.log.WithField("conn", c.id).WithField("type", msg.Type).Errorf("recovered panic: %v", r)
			h.sendError(c, msg.Type, "internal error")
		}
	}()
	if err := h.handle(ctx, c.id, msg); err != nil {
		h.sendError(c, msg.Type, err.Error())
	}
}

func (h *WSHandler) handle(ctx context.Context, connID string, msg inboundMessage) error {
	switch msg.Type {
	case msgCreateRoom:
		var p createRoomPayload
		if err := h.decode(msg.Payload, &p); err != nil {
			return err
		}
		_, err := h.service.CreateRoom(ctx, connID, app.CreateRoomRequest{
			QuizID:   p.QuizID,
			HostID:   p.HostID,
			HostName: p.HostName,
			Settings: p.Settings,
			TeamID:   p.TeamID,
		})
		return err
	case msgJoinRoom:
		var p joinRoomPayload
		if err := h.decode(msg.Payload, &p); err != nil {
			return err
		}
		_, err := h.service.JoinRoom(ctx, connID, app.JoinRequest{
			RoomID:   p.RoomID,
			Username: p.Username,
			UserID:   p.UserID,
		})
		return err
	case msgUpdateSettings:
		var p settingsPayload
		if err := h.decode(msg.Payload, &p); err != nil {
			return err
		}
		return h.service.UpdateSettings(ctx, connID, p.RoomID, p.Settings)
	case msgSubmitAnswer:
		var p answerPayload
		if err := h.decode(msg.Payload, &p); err != nil {
			return err
		}
		return h.service.SubmitAnswer(ctx, connID, p.RoomID, p.UserID, *p.OptionIndex)
	case msgStartGame, msgNextQuestion, msgEndRound, msgPlayAgain, msgEndGame:
		var p roomPayload
		if err := h.decode(msg.Payload, &p); err != nil {
			return err
		}
		return h.roomAction(ctx, connID, msg.Type, p.RoomID)
	default:
		return errUnsupported
	}
}

func (h *WSHandler) roomAction(ctx context.Context, connID, typ, roomID string) error {
	switch typ {
	case msgStartGame:
		return h.service.StartGame(ctx, connID, roomID)
	case msgNextQuestion:
		return h.service.NextQuestion(ctx, connID, roomID)
	case msgEndRound:
		return h.service.EndRound(ctx, connID, roomID)
	case msgPlayAgain:
		return h.service.PlayAgain(ctx, connID, roomID)
	default:
		return h.service.EndGame(ctx, connID, roomID)
	}
}

func (h *WSHandler) decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing payload")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

func (h *WSHandler) sendError(c *client, event, message string) {
	c.enqueue(domain.Event{
		Type:    domain.EventError,
		Payload: domain.ErrorPayload{Event: event, Message: message},
	})
}
