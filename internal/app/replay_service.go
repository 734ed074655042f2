package app

import (
	"context"

	"quizboard-service/internal/domain"
)

// StoreReplayLoader assembles replays straight from a ReplayStore.
type StoreReplayLoader struct {
	store ReplayStore
}

func NewStoreReplayLoader(store ReplayStore) *StoreReplayLoader {
	return &StoreReplayLoader{store: store}
}

func (l *StoreReplayLoader) LoadReplay(ctx context.Context, slug string) (domain.Replay, error) {
	session, err := l.store.GetSession(ctx, slug)
	if err != nil {
		return domain.Replay{}, err
	}
	events, err := l.store.GetEvents(ctx, slug)
	if err != nil {
		return domain.Replay{}, err
	}
	positions, err := l.store.GetFinalPositions(ctx, slug)
	if err != nil {
		return domain.Replay{}, err
	}
	return domain.Replay{Session: session, Events: events, Positions: positions}, nil
}

// ReplayService serves recorded sessions for asynchronous playthrough.
type ReplayService struct {
	store   ReplayStore
	replays ReplayRepository
}

func NewReplayService(store ReplayStore, replays ReplayRepository) *ReplayService {
	return &ReplayService{store: store, replays: replays}
}

// Get returns the session, its ordered events and final positions.
func (s *ReplayService) Get(ctx context.Context, slug string) (domain.Replay, error) {
	if slug == "" {
		return domain.Replay{}, domain.ErrSessionNotFound
	}
	return s.replays.GetReplay(ctx, slug)
}

// Delete removes the session and evicts it from the cache.
func (s *ReplayService) Delete(ctx context.Context, slug string) error {
	if err := s.store.DeleteSession(ctx, slug); err != nil {
		return err
	}
	return s.replays.Invalidate(ctx, slug)
}
