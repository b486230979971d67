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

type PatternStore struct {
	db *pgxpool.Pool
}

func NewPatternStore(db *pgxpool.Pool) *PatternStore {
	return &PatternStore{db: db}
}

func (s *PatternStore) Create(ctx context.Context, p *domain.Pattern) error {
	if p.OccurrenceCount == 0 {
		p.OccurrenceCount = 1
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO patterns (pattern_type, description, occurrence_count, confidence)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, first_seen, last_seen`,
		p.PatternType, p.Description, p.OccurrenceCount, p.Confidence,
	).Scan(&p.ID, &p.FirstSeen, &p.LastSeen)
}

func (s *PatternStore) GetBySignature(ctx context.Context, patternType, description string) (*domain.Pattern, error) {
	p := &domain.Pattern{}
	err := s.db.QueryRow(ctx,
		`SELECT id, pattern_type, description, occurrence_count, confidence, first_seen, last_seen
		 FROM patterns WHERE pattern_type = $1 AND description = $2`,
		patternType, description,
	).Scan(&p.ID, &p.PatternType, &p.Description, &p.OccurrenceCount, &p.Confidence, &p.FirstSeen, &p.LastSeen)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *PatternStore) IncrementOccurrence(ctx context.Context, id uuid.UUID, confidence float64, at time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE patterns SET occurrence_count = occurrence_count + 1, confidence = $2, last_seen = $3
		 WHERE id = $1`,
		id, confidence, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PatternStore) List(ctx context.Context, page domain.Page) ([]domain.Pattern, error) {
	page = page.Clamp(50, 200)
	rows, err := s.db.Query(ctx,
		`SELECT id, pattern_type, description, occurrence_count, confidence, first_seen, last_seen
		 FROM patterns ORDER BY last_seen DESC LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patterns []domain.Pattern
	for rows.Next() {
		var p domain.Pattern
		if err := rows.Scan(&p.ID, &p.PatternType, &p.Description, &p.OccurrenceCount, &p.Confidence, &p.FirstSeen, &p.LastSeen); err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}
