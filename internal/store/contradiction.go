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

type ContradictionStore struct {
	db *pgxpool.Pool
}

func NewContradictionStore(db *pgxpool.Pool) *ContradictionStore {
	return &ContradictionStore{db: db}
}

func (s *ContradictionStore) Create(ctx context.Context, c *domain.Contradiction) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO contradictions (claim_a_id, claim_b_id, contradiction_type, resolved)
		 VALUES ($1, $2, $3, FALSE)
		 RETURNING id, detected_at`,
		c.ClaimAID, c.ClaimBID, c.ContradictionType,
	).Scan(&c.ID, &c.DetectedAt)
}

func (s *ContradictionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contradiction, error) {
	c := &domain.Contradiction{}
	err := s.db.QueryRow(ctx,
		`SELECT id, claim_a_id, claim_b_id, contradiction_type, resolved, resolution_type, resolution_notes, detected_at, resolved_at
		 FROM contradictions WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.ClaimAID, &c.ClaimBID, &c.ContradictionType, &c.Resolved, &c.ResolutionType, &c.ResolutionNotes, &c.DetectedAt, &c.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// ExistsForPair is order-insensitive: (a,b) and (b,a) are the same pair.
func (s *ContradictionStore) ExistsForPair(ctx context.Context, claimA, claimB uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM contradictions
		     WHERE (claim_a_id = $1 AND claim_b_id = $2)
		        OR (claim_a_id = $2 AND claim_b_id = $1)
		 )`,
		claimA, claimB,
	).Scan(&exists)
	return exists, err
}

func (s *ContradictionStore) List(ctx context.Context, onlyUnresolved bool, page domain.Page) ([]domain.Contradiction, error) {
	page = page.Clamp(50, 200)
	query := `SELECT id, claim_a_id, claim_b_id, contradiction_type, resolved, resolution_type, resolution_notes, detected_at, resolved_at
	          FROM contradictions`
	if onlyUnresolved {
		query += ` WHERE resolved = FALSE`
	}
	query += ` ORDER BY detected_at DESC LIMIT $1 OFFSET $2`

	return s.list(ctx, query, page.Limit, page.Offset)
}

func (s *ContradictionStore) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]domain.Contradiction, error) {
	return s.list(ctx,
		`SELECT id, claim_a_id, claim_b_id, contradiction_type, resolved, resolution_type, resolution_notes, detected_at, resolved_at
		 FROM contradictions
		 WHERE claim_a_id = $1 OR claim_b_id = $1
		 ORDER BY detected_at DESC`,
		claimID,
	)
}

func (s *ContradictionStore) list(ctx context.Context, query string, args ...any) ([]domain.Contradiction, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Contradiction
	for rows.Next() {
		var c domain.Contradiction
		if err := rows.Scan(&c.ID, &c.ClaimAID, &c.ClaimBID, &c.ContradictionType, &c.Resolved, &c.ResolutionType, &c.ResolutionNotes, &c.DetectedAt, &c.ResolvedAt); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// Resolve is monotone: a resolved contradiction never reverts to unresolved.
func (s *ContradictionStore) Resolve(ctx context.Context, id uuid.UUID, resolutionType, notes string, at time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE contradictions
		 SET resolved = TRUE, resolution_type = $2, resolution_notes = $3, resolved_at = $4
		 WHERE id = $1 AND resolved = FALSE`,
		id, resolutionType, notes, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
