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

type ClaimStore struct {
	db *pgxpool.Pool
}

func NewClaimStore(db *pgxpool.Pool) *ClaimStore {
	return &ClaimStore{db: db}
}

const claimColumns = `id, statement, claim_type, subject, stakes, temporality, abstraction,
	source_type, state, current_confidence, emotional_valence, emotional_intensity,
	confirmation_count, salience, memory_tier, created_at, last_confirmed, last_accessed_at, promoted_at`

func (s *ClaimStore) Create(ctx context.Context, c *domain.Claim) error {
	if c.State == "" {
		c.State = domain.ClaimActive
	}
	if c.MemoryTier == "" {
		c.MemoryTier = domain.TierWorking
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO claims (statement, claim_type, subject, stakes, temporality, abstraction,
		     source_type, state, current_confidence, emotional_valence, emotional_intensity,
		     confirmation_count, salience, memory_tier)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id, created_at`,
		c.Statement, c.ClaimType, c.Subject, c.Stakes, c.Temporality, c.Abstraction,
		c.SourceType, c.State, c.CurrentConfidence, c.EmotionalValence, c.EmotionalIntensity,
		c.ConfirmationCount, c.Salience, c.MemoryTier,
	).Scan(&c.ID, &c.CreatedAt)
}

func (s *ClaimStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	c := &domain.Claim{}
	err := s.db.QueryRow(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE id = $1`, id,
	).Scan(scanClaimTargets(c)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *ClaimStore) List(ctx context.Context, state domain.ClaimState, page domain.Page) ([]domain.Claim, error) {
	page = page.Clamp(50, 200)
	if state == "" {
		return s.listClaims(ctx,
			`SELECT `+claimColumns+` FROM claims ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			page.Limit, page.Offset,
		)
	}
	return s.listClaims(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE state = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		state, page.Limit, page.Offset,
	)
}

func (s *ClaimStore) ListBySubject(ctx context.Context, subject string, state domain.ClaimState) ([]domain.Claim, error) {
	return s.listClaims(ctx,
		`SELECT `+claimColumns+` FROM claims
		 WHERE LOWER(subject) = LOWER($1) AND state = $2
		 ORDER BY created_at DESC`,
		subject, state,
	)
}

func (s *ClaimStore) ListActiveSince(ctx context.Context, since time.Time, limit int) ([]domain.Claim, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.listClaims(ctx,
		`SELECT `+claimColumns+` FROM claims
		 WHERE state = 'active' AND created_at >= $1
		 ORDER BY created_at DESC LIMIT $2`,
		since, limit,
	)
}

func (s *ClaimStore) ListForDecay(ctx context.Context) ([]domain.Claim, error) {
	return s.listClaims(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE state = 'active'`,
	)
}

func (s *ClaimStore) listClaims(ctx context.Context, query string, args ...any) ([]domain.Claim, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []domain.Claim
	for rows.Next() {
		var c domain.Claim
		if err := rows.Scan(scanClaimTargets(&c)...); err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

func scanClaimTargets(c *domain.Claim) []any {
	return []any{
		&c.ID, &c.Statement, &c.ClaimType, &c.Subject, &c.Stakes, &c.Temporality, &c.Abstraction,
		&c.SourceType, &c.State, &c.CurrentConfidence, &c.EmotionalValence, &c.EmotionalIntensity,
		&c.ConfirmationCount, &c.Salience, &c.MemoryTier, &c.CreatedAt, &c.LastConfirmed, &c.LastAccessedAt, &c.PromotedAt,
	}
}

func (s *ClaimStore) UpdateConfidence(ctx context.Context, id uuid.UUID, confidence float64) error {
	return s.exec(ctx, `UPDATE claims SET current_confidence = $2 WHERE id = $1`, id, confidence)
}

func (s *ClaimStore) UpdateSalience(ctx context.Context, id uuid.UUID, salience float64) error {
	return s.exec(ctx, `UPDATE claims SET salience = $2 WHERE id = $1`, id, salience)
}

func (s *ClaimStore) Reinforce(ctx context.Context, id uuid.UUID, confidence float64, confirmations int, at time.Time) error {
	return s.exec(ctx,
		`UPDATE claims SET current_confidence = $2, confirmation_count = $3, last_confirmed = $4 WHERE id = $1`,
		id, confidence, confirmations, at,
	)
}

func (s *ClaimStore) RecordAccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.exec(ctx, `UPDATE claims SET last_accessed_at = $2 WHERE id = $1`, id, at)
}

func (s *ClaimStore) SetState(ctx context.Context, id uuid.UUID, state domain.ClaimState) error {
	return s.exec(ctx, `UPDATE claims SET state = $2 WHERE id = $1`, id, state)
}

func (s *ClaimStore) Promote(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.exec(ctx,
		`UPDATE claims SET memory_tier = 'long_term', promoted_at = $2 WHERE id = $1 AND memory_tier = 'working'`,
		id, at,
	)
}

func (s *ClaimStore) exec(ctx context.Context, query string, args ...any) error {
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ClaimStore) Stats(ctx context.Context) (*domain.ClaimStats, error) {
	st := &domain.ClaimStats{}
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE state = 'active'),
		        COUNT(*) FILTER (WHERE state = 'stale'),
		        COUNT(*) FILTER (WHERE state = 'retracted'),
		        COUNT(*) FILTER (WHERE memory_tier = 'working'),
		        COUNT(*) FILTER (WHERE memory_tier = 'long_term'),
		        COALESCE(AVG(current_confidence), 0)
		 FROM claims`,
	).Scan(&st.Total, &st.Active, &st.Stale, &st.Retracted, &st.Working, &st.LongTerm, &st.AvgConfidence)
	if err != nil {
		return nil, err
	}
	return st, nil
}
