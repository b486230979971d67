package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noemahq/noema/internal/domain"
)

type CorrectionStore struct {
	db *pgxpool.Pool
}

func NewCorrectionStore(db *pgxpool.Pool) *CorrectionStore {
	return &CorrectionStore{db: db}
}

func (s *CorrectionStore) Create(ctx context.Context, c *domain.Correction) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO corrections (wrong_text, correct_text)
		 VALUES ($1, $2)
		 ON CONFLICT (wrong_text) DO UPDATE SET correct_text = EXCLUDED.correct_text
		 RETURNING id, usage_count, created_at`,
		c.WrongText, c.CorrectText,
	).Scan(&c.ID, &c.UsageCount, &c.CreatedAt)
}

func (s *CorrectionStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM corrections WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *CorrectionStore) GetByWrongText(ctx context.Context, wrongText string) (*domain.Correction, error) {
	c := &domain.Correction{}
	err := s.db.QueryRow(ctx,
		`SELECT id, wrong_text, correct_text, usage_count, created_at
		 FROM corrections WHERE LOWER(wrong_text) = LOWER($1)`,
		wrongText,
	).Scan(&c.ID, &c.WrongText, &c.CorrectText, &c.UsageCount, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *CorrectionStore) List(ctx context.Context, page domain.Page) ([]domain.Correction, error) {
	page = page.Clamp(100, 500)
	rows, err := s.db.Query(ctx,
		`SELECT id, wrong_text, correct_text, usage_count, created_at
		 FROM corrections ORDER BY LENGTH(wrong_text) DESC, wrong_text
		 LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var corrections []domain.Correction
	for rows.Next() {
		var c domain.Correction
		if err := rows.Scan(&c.ID, &c.WrongText, &c.CorrectText, &c.UsageCount, &c.CreatedAt); err != nil {
			return nil, err
		}
		corrections = append(corrections, c)
	}
	return corrections, rows.Err()
}

func (s *CorrectionStore) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE corrections SET usage_count = usage_count + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type VocabularyStore struct {
	db *pgxpool.Pool
}

func NewVocabularyStore(db *pgxpool.Pool) *VocabularyStore {
	return &VocabularyStore{db: db}
}

const vocabColumns = `id, correct_spelling, entity_type, phonetic_primary, phonetic_secondary,
	variant_counts, context_hints, usage_count, created_at, updated_at`

func (s *VocabularyStore) Create(ctx context.Context, v *domain.VocabularyEntry) error {
	if v.VariantCounts == nil {
		v.VariantCounts = map[string]int{}
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO vocabulary (correct_spelling, entity_type, phonetic_primary, phonetic_secondary, variant_counts, context_hints)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, usage_count, created_at, updated_at`,
		v.CorrectSpelling, v.EntityType, v.PhoneticPrimary, v.PhoneticSecondary, v.VariantCounts, v.ContextHints,
	).Scan(&v.ID, &v.UsageCount, &v.CreatedAt, &v.UpdatedAt)
}

func (s *VocabularyStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM vocabulary WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *VocabularyStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.VocabularyEntry, error) {
	return s.get(ctx, `SELECT `+vocabColumns+` FROM vocabulary WHERE id = $1`, id)
}

func (s *VocabularyStore) GetBySpelling(ctx context.Context, spelling, entityType string) (*domain.VocabularyEntry, error) {
	return s.get(ctx,
		`SELECT `+vocabColumns+` FROM vocabulary
		 WHERE LOWER(correct_spelling) = LOWER($1) AND entity_type = $2`,
		spelling, entityType,
	)
}

func (s *VocabularyStore) get(ctx context.Context, query string, args ...any) (*domain.VocabularyEntry, error) {
	v := &domain.VocabularyEntry{}
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&v.ID, &v.CorrectSpelling, &v.EntityType, &v.PhoneticPrimary, &v.PhoneticSecondary,
		&v.VariantCounts, &v.ContextHints, &v.UsageCount, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func (s *VocabularyStore) ListByPhonetic(ctx context.Context, code string) ([]domain.VocabularyEntry, error) {
	return s.list(ctx,
		`SELECT `+vocabColumns+` FROM vocabulary
		 WHERE phonetic_primary = $1 OR phonetic_secondary = $1`,
		code,
	)
}

func (s *VocabularyStore) List(ctx context.Context, page domain.Page) ([]domain.VocabularyEntry, error) {
	page = page.Clamp(100, 500)
	return s.list(ctx,
		`SELECT `+vocabColumns+` FROM vocabulary ORDER BY usage_count DESC, correct_spelling
		 LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset,
	)
}

func (s *VocabularyStore) list(ctx context.Context, query string, args ...any) ([]domain.VocabularyEntry, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.VocabularyEntry
	for rows.Next() {
		var v domain.VocabularyEntry
		if err := rows.Scan(&v.ID, &v.CorrectSpelling, &v.EntityType, &v.PhoneticPrimary, &v.PhoneticSecondary,
			&v.VariantCounts, &v.ContextHints, &v.UsageCount, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, v)
	}
	return entries, rows.Err()
}

func (s *VocabularyStore) Update(ctx context.Context, v *domain.VocabularyEntry) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE vocabulary
		 SET correct_spelling = $2, entity_type = $3, phonetic_primary = $4, phonetic_secondary = $5,
		     variant_counts = $6, context_hints = $7, updated_at = NOW()
		 WHERE id = $1`,
		v.ID, v.CorrectSpelling, v.EntityType, v.PhoneticPrimary, v.PhoneticSecondary, v.VariantCounts, v.ContextHints,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *VocabularyStore) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE vocabulary SET usage_count = usage_count + 1, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
