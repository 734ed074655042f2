package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quizboard-service/internal/domain"
)

// ReplayStore is an in-memory implementation of app.ReplayStore.
type ReplayStore struct {
	mu       sync.RWMutex
	clock    func() time.Time
	sessions map[string]*replayRecord
}

type replayRecord struct {
	session   domain.ReplaySession
	events    []domain.ReplayEvent
	positions []domain.FinalPosition
}

func NewReplayStore() *ReplayStore {
	return &ReplayStore{
		clock:    time.Now,
		sessions: make(map[string]*replayRecord),
	}
}

func (s *ReplayStore) CreateSession(_ context.Context, session domain.ReplaySession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.Slug]; ok {
		return fmt.Errorf("replay session %q already exists", session.Slug)
	}
	if session.Status == "" {
		session.Status = domain.SessionActive
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = s.clock()
	}
	s.sessions[session.Slug] = &replayRecord{session: session}
	return nil
}

func (s *ReplayStore) AppendEvent(_ context.Context, slug string, event domain.ReplayEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[slug]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if rec.session.Status == domain.SessionCompleted {
		return domain.ErrSessionCompleted
	}
	event.Seq = int64(len(rec.events) + 1)
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.clock()
	}
	rec.events = append(rec.events, event)
	return nil
}

func (s *ReplayStore) GetSession(_ context.Context, slug string) (domain.ReplaySession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[slug]
	if !ok {
		return domain.ReplaySession{}, domain.ErrSessionNotFound
	}
	return rec.session, nil
}

func (s *ReplayStore) GetEvents(_ context.Context, slug string) ([]domain.ReplayEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[slug]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return append([]domain.ReplayEvent(nil), rec.events...), nil
}

func (s *ReplayStore) CompleteSession(_ context.Context, slug string, positions []domain.FinalPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[slug]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if rec.session.Status == domain.SessionCompleted {
		return nil
	}
	now := s.clock()
	rec.session.Status = domain.SessionCompleted
	rec.session.CompletedAt = &now
	rec.positions = append([]domain.FinalPosition(nil), positions...)
	return nil
}

func (s *ReplayStore) GetFinalPositions(_ context.Context, slug string) ([]domain.FinalPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[slug]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return append([]domain.FinalPosition(nil), rec.positions...), nil
}

func (s *ReplayStore) DeleteSession(_ context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[slug]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(s.sessions, slug)
	return nil
}
