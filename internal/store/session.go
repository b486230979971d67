package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noemahq/noema/internal/domain"
)

type SessionStore struct {
	db *pgxpool.Pool
}

func NewSessionStore(db *pgxpool.Pool) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Create(ctx context.Context, sess *domain.Session) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO sessions (started_at)
		 VALUES (COALESCE($1, NOW()))
		 RETURNING id, started_at`,
		nullableTime(sess.StartedAt),
	).Scan(&sess.ID, &sess.StartedAt)
}

func (s *SessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	sess := &domain.Session{}
	err := s.db.QueryRow(ctx,
		`SELECT id, started_at, ended_at FROM sessions WHERE id = $1`,
		id,
	).Scan(&sess.ID, &sess.StartedAt, &sess.EndedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

func (s *SessionStore) GetOpen(ctx context.Context) (*domain.Session, error) {
	sess := &domain.Session{}
	err := s.db.QueryRow(ctx,
		`SELECT id, started_at, ended_at FROM sessions
		 WHERE ended_at IS NULL
		 ORDER BY started_at DESC LIMIT 1`,
	).Scan(&sess.ID, &sess.StartedAt, &sess.EndedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

func (s *SessionStore) End(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE sessions SET ended_at = $2 WHERE id = $1 AND ended_at IS NULL`,
		id, endedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
