package memory

import (
	"context"
	"testing"

	"quizboard-service/internal/domain"
)

func TestReplayStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewReplayStore()

	if err := store.CreateSession(ctx, domain.ReplaySession{Slug: "abc"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateSession(ctx, domain.ReplaySession{Slug: "abc"}); err == nil {
		t.Fatalf("expected duplicate slug to fail")
	}
	session, err := store.GetSession(ctx, "abc")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.Status != domain.SessionActive || session.CreatedAt.IsZero() {
		t.Fatalf("expected active session with timestamp, got %+v", session)
	}

	for _, kind := range []string{"join", "move", "answer"} {
		if err := store.AppendEvent(ctx, "abc", domain.ReplayEvent{Kind: kind}); err != nil {
			t.Fatalf("append %s: %v", kind, err)
		}
	}
	events, err := store.GetEvents(ctx, "abc")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	for i, ev := range events {
		if ev.Seq != int64(i+1) {
			t.Fatalf("event %d has seq %d", i, ev.Seq)
		}
	}

	positions := []domain.FinalPosition{{StudentID: "s1", Name: "Ada", Square: 4}}
	if err := store.CompleteSession(ctx, "abc", positions); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := store.CompleteSession(ctx, "abc", nil); err != nil {
		t.Fatalf("second complete: %v", err)
	}
	got, _ := store.GetFinalPositions(ctx, "abc")
	if len(got) != 1 || got[0].Square != 4 {
		t.Fatalf("completion must keep the first positions, got %+v", got)
	}
	if err := store.AppendEvent(ctx, "abc", domain.ReplayEvent{Kind: "late"}); err != domain.ErrSessionCompleted {
		t.Fatalf("expected ErrSessionCompleted, got %v", err)
	}

	if err := store.DeleteSession(ctx, "abc"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetSession(ctx, "abc"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := store.AppendEvent(ctx, "abc", domain.ReplayEvent{Kind: "join"}); err != domain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound on append, got %v", err)
	}
}
