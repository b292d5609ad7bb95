package app

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces join codes and opaque identifiers.
type IDGenerator interface {
	JoinCode() string
	SessionID() string
	GuestID() string
}

// RandomIDs issues six-digit join codes and uuid-based ids.
type RandomIDs struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRandomIDs() *RandomIDs {
	return &RandomIDs{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (g *RandomIDs) JoinCode() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("%06d", g.rnd.Intn(1000000))
}

func (g *RandomIDs) SessionID() string {
	return uuid.NewString()
}

func (g *RandomIDs) GuestID() string {
	return "guest-" + uuid.NewString()
}
