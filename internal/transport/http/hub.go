package http

import (
	"sync"

	"github.com/sirupsen/logrus"
	"live-quiz-service/internal/domain"
)

const sendBuffer = 16

// client is one websocket connection as seen by the hub.
type client struct {
	id     string
	teamID string
	send   chan domain.Event
	done   chan struct{}
}

func newClient(id, teamID string) *client {
	return &client{
		id:     id,
		teamID: teamID,
		send:   make(chan domain.Event, sendBuffer),
		done:   make(chan struct{}),
	}
}

// enqueue never blocks: on a full buffer the oldest message is dropped.
// State pushes are full snapshots so a dropped one is superseded anyway.
func (c *client) enqueue(ev domain.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- ev:
		return true
	default:
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

// Hub routes events to connections by id and to team subscribers. It is the
// app.Notifier used in production.
type Hub struct {
	log logrus.FieldLogger

	mu      sync.RWMutex
	clients map[string]*client
	teams   map[string]map[string]*client
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		log:     log,
		clients: make(map[string]*client),
		teams:   make(map[string]map[string]*client),
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	if c.teamID == "" {
		return
	}
	members, ok := h.teams[c.teamID]
	if !ok {
		members = make(map[string]*client)
		h.teams[c.teamID] = members
	}
	members[c.id] = c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c.id)
	if members, ok := h.teams[c.teamID]; ok {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.teams, c.teamID)
		}
	}
}

// Send delivers ev to one connection. Unknown connections are ignored.
func (h *Hub) Send(connID string, ev domain.Event) {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if !c.enqueue(ev) {
		h.log.WithField("conn", connID).WithField("type", ev.Type).Debug("dropped event for closed connection")
	}
}

// SendTeam delivers ev to every connection subscribed to teamID.
func (h *Hub) SendTeam(teamID string, ev domain.Event) {
	h.mu.RLock()
	members := make([]*client, 0, len(h.teams[teamID]))
	for _, c := range h.teams[teamID] {
		members = append(members, c)
	}
	h.mu.RUnlock()
	for _, c := range members {
		c.enqueue(ev)
	}
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
