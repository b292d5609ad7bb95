package memory

import (
	"context"
	"sync"

	"live-quiz-service/internal/domain"
)

// HistoryStore is an append-only in-memory history log.
type HistoryStore struct {
	mu      sync.RWMutex
	records []domain.HistoryRecord
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

func (h *HistoryStore) AppendHistory(_ context.Context, records []domain.HistoryRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, records...)
	return nil
}

// ListHistory returns records of a session in append order; an empty userID
// matches everyone.
func (h *HistoryStore) ListHistory(_ context.Context, sessionID, userID string) ([]domain.HistoryRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.HistoryRecord, 0)
	for _, rec := range h.records {
		if rec.SessionID != sessionID {
			continue
		}
		if userID != "" && rec.UserID != userID {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
