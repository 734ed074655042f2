package app

import (
	"context"

	"quizboard-service/internal/domain"
)

// ReplayStore persists replay sessions keyed by slug (postgres, memory).
type ReplayStore interface {
	CreateSession(ctx context.Context, session domain.ReplaySession) error
	AppendEvent(ctx context.Context, slug string, event domain.ReplayEvent) error
	GetSession(ctx context.Context, slug string) (domain.ReplaySession, error)
	GetEvents(ctx context.Context, slug string) ([]domain.ReplayEvent, error)
	CompleteSession(ctx context.Context, slug string, positions []domain.FinalPosition) error
	GetFinalPositions(ctx context.Context, slug string) ([]domain.FinalPosition, error)
	DeleteSession(ctx context.Context, slug string) error
}

// ReplayLoader assembles a full replay from the backing store.
type ReplayLoader interface {
	LoadReplay(ctx context.Context, slug string) (domain.Replay, error)
}

// ReplayRepository returns replays, usually through a cache.
type ReplayRepository interface {
	GetReplay(ctx context.Context, slug string) (domain.Replay, error)
	Invalidate(ctx context.Context, slug string) error
}

// Notifier announces a new session to the teacher.
type Notifier interface {
	Notify(ctx context.Context, recipient, slug, quizName string) (bool, error)
}

// DiagnosticSink receives one record per disconnect.
type DiagnosticSink interface {
	RecordDisconnect(record DisconnectRecord)
}

// StateMirror copies the live snapshot somewhere observable (redis).
type StateMirror interface {
	Mirror(ctx context.Context, snapshot domain.Snapshot) error
}
