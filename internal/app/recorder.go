package app

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"quizboard-service/internal/domain"
)

// Recorder appends gameplay events to a ReplayStore in the background.
// Failures are logged and never reach gameplay.
type Recorder struct {
	store    ReplayStore
	dispatch *Dispatcher
	log      logrus.FieldLogger
}

func NewRecorder(store ReplayStore, dispatch *Dispatcher, log logrus.FieldLogger) *Recorder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Recorder{store: store, dispatch: dispatch, log: log}
}

func (r *Recorder) enabled() bool {
	return r != nil && r.store != nil && r.dispatch != nil
}

// Begin creates the durable session record.
func (r *Recorder) Begin(session domain.ReplaySession) {
	if !r.enabled() || session.Slug == "" {
		return
	}
	r.dispatch.Submit("create-session", func(ctx context.Context) error {
		return r.store.CreateSession(ctx, session)
	})
}

// Append records one event against slug. payload is encoded as JSON.
func (r *Recorder) Append(slug string, event domain.ReplayEvent, payload any) {
	if !r.enabled() || slug == "" {
		return
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			r.log.WithError(err).WithField("kind", event.Kind).Warn("replay payload not encodable")
			return
		}
		event.Payload = data
	}
	r.dispatch.Submit("append-event", func(ctx context.Context) error {
		return r.store.AppendEvent(ctx, slug, event)
	})
}

// Complete closes the session with the students' final squares.
func (r *Recorder) Complete(slug string, positions []domain.FinalPosition) {
	if !r.enabled() || slug == "" {
		return
	}
	r.dispatch.Submit("complete-session", func(ctx context.Context) error {
		return r.store.CompleteSession(ctx, slug, positions)
	})
}
