package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"

	"quizboard-service/internal/domain"
)

// ReplayStore persists replay sessions, their event log and final
// positions in Postgres.
type ReplayStore struct {
	pool *pgxpool.Pool
}

func NewReplayStore(pool *pgxpool.Pool) *ReplayStore {
	return &ReplayStore{pool: pool}
}

func (s *ReplayStore) CreateSession(ctx context.Context, session domain.ReplaySession) error {
	status := session.Status
	if status == "" {
		status = domain.SessionActive
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO replay_sessions (id, slug, quiz_name, quiz_content, status, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
	`, session.ID, session.Slug, session.QuizName, session.QuizContent, status, nullTime(session))
	return errors.Wrapf(err, "create replay session %s", session.Slug)
}

func nullTime(session domain.ReplaySession) interface{} {
	if session.CreatedAt.IsZero() {
		return nil
	}
	return session.CreatedAt
}

// AppendEvent assigns the next sequence number inside the insert so
// concurrent appends to one session cannot collide silently.
func (s *ReplayStore) AppendEvent(ctx context.Context, slug string, event domain.ReplayEvent) error {
	var payload interface{}
	if len(event.Payload) > 0 {
		payload = string(event.Payload)
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO replay_events (session_id, seq, kind, student_id, payload, created_at)
		SELECT s.id,
		       COALESCE((SELECT MAX(e.seq) FROM replay_events e WHERE e.session_id = s.id), 0) + 1,
		       $2, $3, $4::jsonb, COALESCE($5, NOW())
		FROM replay_sessions s
		WHERE s.slug = $1 AND s.status = 'active'
	`, slug, event.Kind, event.StudentID, payload, eventTime(event))
	if err != nil {
		return errors.Wrapf(err, "append replay event to %s", slug)
	}
	if tag.RowsAffected() == 0 {
		session, err := s.GetSession(ctx, slug)
		if err != nil {
			return err
		}
		if session.Status == domain.SessionCompleted {
			return domain.ErrSessionCompleted
		}
		return errors.Errorf("append replay event to %s: no row inserted", slug)
	}
	return nil
}

func eventTime(event domain.ReplayEvent) interface{} {
	if event.CreatedAt.IsZero() {
		return nil
	}
	return event.CreatedAt
}

func (s *ReplayStore) GetSession(ctx context.Context, slug string) (domain.ReplaySession, error) {
	var session domain.ReplaySession
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, slug, quiz_name, quiz_content, status, created_at, completed_at
		FROM replay_sessions WHERE slug = $1
	`, slug).Scan(
		&session.ID,
		&session.Slug,
		&session.QuizName,
		&session.QuizContent,
		&session.Status,
		&session.CreatedAt,
		&session.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ReplaySession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.ReplaySession{}, errors.Wrapf(err, "load replay session %s", slug)
	}
	return session, nil
}

func (s *ReplayStore) GetEvents(ctx context.Context, slug string) ([]domain.ReplayEvent, error) {
	if _, err := s.GetSession(ctx, slug); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT e.seq, e.kind, e.student_id, e.payload, e.created_at
		FROM replay_events e
		JOIN replay_sessions s ON s.id = e.session_id
		WHERE s.slug = $1
		ORDER BY e.seq
	`, slug)
	if err != nil {
		return nil, errors.Wrapf(err, "query replay events for %s", slug)
	}
	defer rows.Close()

	var events []domain.ReplayEvent
	for rows.Next() {
		var ev domain.ReplayEvent
		if err := rows.Scan(&ev.Seq, &ev.Kind, &ev.StudentID, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan replay event")
		}
		events = append(events, ev)
	}
	return events, errors.Wrap(rows.Err(), "iterate replay events")
}

func (s *ReplayStore) CompleteSession(ctx context.Context, slug string, positions []domain.FinalPosition) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin complete session")
	}
	defer tx.Rollback(ctx)

	var sessionID string
	err = tx.QueryRow(ctx, `
		UPDATE replay_sessions
		SET status = 'completed', completed_at = NOW()
		WHERE slug = $1 AND status = 'active'
		RETURNING id::text
	`, slug).Scan(&sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		// unknown, or already completed
		if _, err := s.GetSession(ctx, slug); err != nil {
			return err
		}
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "complete replay session %s", slug)
	}

	batch := &pgx.Batch{}
	for _, p := range positions {
		batch.Queue(`
			INSERT INTO replay_positions (session_id, student_id, name, square)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (session_id, student_id) DO UPDATE SET name = EXCLUDED.name, square = EXCLUDED.square
		`, sessionID, p.StudentID, p.Name, p.Square)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "store final positions")
		}
	}
	return errors.Wrap(tx.Commit(ctx), "commit complete session")
}

func (s *ReplayStore) GetFinalPositions(ctx context.Context, slug string) ([]domain.FinalPosition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.student_id, p.name, p.square
		FROM replay_positions p
		JOIN replay_sessions s ON s.id = p.session_id
		WHERE s.slug = $1
		ORDER BY p.square DESC, p.name
	`, slug)
	if err != nil {
		return nil, errors.Wrapf(err, "query final positions for %s", slug)
	}
	defer rows.Close()

	var positions []domain.FinalPosition
	for rows.Next() {
		var p domain.FinalPosition
		if err := rows.Scan(&p.StudentID, &p.Name, &p.Square); err != nil {
			return nil, errors.Wrap(err, "scan final position")
		}
		positions = append(positions, p)
	}
	return positions, errors.Wrap(rows.Err(), "iterate final positions")
}

func (s *ReplayStore) DeleteSession(ctx context.Context, slug string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM replay_sessions WHERE slug = $1`, slug)
	if err != nil {
		return errors.Wrapf(err, "delete replay session %s", slug)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}
