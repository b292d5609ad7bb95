package memory

import (
	"context"
	"sync"
	"time"

	"live-quiz-service/internal/domain"
)

// SessionRecordStore keeps durable session records in memory.
type SessionRecordStore struct {
	mu      sync.RWMutex
	records map[string]domain.SessionRecord
}

func NewSessionRecordStore() *SessionRecordStore {
	return &SessionRecordStore{records: make(map[string]domain.SessionRecord)}
}

func (s *SessionRecordStore) CreateSession(_ context.Context, rec domain.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return nil
}

func (s *SessionRecordStore) UpdateSessionStatus(_ context.Context, sessionID string, status domain.SessionStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if rec.Status.Final() {
		return nil
	}
	rec.Status = status
	switch status {
	case domain.SessionInProgress:
		rec.StartedAt = &at
	case domain.SessionAborted, domain.SessionCompleted:
		rec.EndedAt = &at
	}
	s.records[sessionID] = rec
	return nil
}

func (s *SessionRecordStore) CompleteSession(_ context.Context, snap domain.ResultsSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[snap.SessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	endedAt := snap.CompletedAt
	rec.Status = domain.SessionCompleted
	rec.Results = append([]domain.FinalResult(nil), snap.Rankings...)
	rec.Questions = snap.TotalQuestions
	rec.EndedAt = &endedAt
	s.records[snap.SessionID] = rec
	return nil
}

func (s *SessionRecordStore) GetSession(_ context.Context, sessionID string) (domain.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[sessionID]
	if !ok {
		return domain.SessionRecord{}, domain.ErrSessionNotFound
	}
	return rec, nil
}
