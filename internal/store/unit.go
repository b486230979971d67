package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noemahq/noema/internal/domain"
)

type UnitStore struct {
	db *pgxpool.Pool
}

func NewUnitStore(db *pgxpool.Pool) *UnitStore {
	return &UnitStore{db: db}
}

func (s *UnitStore) Create(ctx context.Context, u *domain.ConversationUnit) error {
	if u.SanitizedText == "" {
		u.SanitizedText = u.RawText
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO conversation_units (session_id, raw_text, sanitized_text, source)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, processed, timestamp`,
		u.SessionID, u.RawText, u.SanitizedText, u.Source,
	).Scan(&u.ID, &u.Processed, &u.Timestamp)
}

func (s *UnitStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ConversationUnit, error) {
	u := &domain.ConversationUnit{}
	err := s.db.QueryRow(ctx,
		`SELECT id, session_id, raw_text, sanitized_text, source, processed, timestamp
		 FROM conversation_units WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.SessionID, &u.RawText, &u.SanitizedText, &u.Source, &u.Processed, &u.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *UnitStore) UpdateSanitized(ctx context.Context, id uuid.UUID, sanitized string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE conversation_units SET sanitized_text = $2 WHERE id = $1`,
		id, sanitized,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UnitStore) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE conversation_units SET processed = TRUE WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UnitStore) ListBySession(ctx context.Context, sessionID uuid.UUID, page domain.Page) ([]domain.ConversationUnit, error) {
	page = page.Clamp(50, 200)
	rows, err := s.db.Query(ctx,
		`SELECT id, session_id, raw_text, sanitized_text, source, processed, timestamp
		 FROM conversation_units
		 WHERE session_id = $1
		 ORDER BY timestamp DESC
		 LIMIT $2 OFFSET $3`,
		sessionID, page.Limit, page.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []domain.ConversationUnit
	for rows.Next() {
		var u domain.ConversationUnit
		if err := rows.Scan(&u.ID, &u.SessionID, &u.RawText, &u.SanitizedText, &u.Source, &u.Processed, &u.Timestamp); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}
